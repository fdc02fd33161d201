package shell

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adminconsole/internal/app"
	"github.com/patric-chuzhbe/adminconsole/internal/config"
	"github.com/patric-chuzhbe/adminconsole/internal/fakeapi"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

func runScript(t *testing.T, fake *fakeapi.API, script string) string {
	t.Helper()

	srv := fake.Server()
	t.Cleanup(srv.Close)

	application, err := app.New(&config.Config{
		APIBaseURL:      srv.URL,
		LogLevel:        "debug",
		AdminOnly:       true,
		NotificationTTL: time.Minute,
	})
	require.NoError(t, err)
	defer func() {
		_ = application.Close()
	}()

	var out bytes.Buffer
	sh := New(application.Console(), strings.NewReader(script), &out)
	require.NoError(t, sh.Run(context.Background()))

	return out.String()
}

func TestLoginAndList(t *testing.T) {
	fake := fakeapi.New()
	adminID := fake.AddUser("admin", "secret", models.RoleAdmin)
	bobID := fake.AddUser("bob", "pw", models.RoleUser)

	out := runScript(t, fake, "login admin\nsecret\nquit\n")

	assert.Contains(t, out, "Please log in.")
	assert.Contains(t, out, "== Admin Management ==")
	assert.Contains(t, out, "UUID")
	assert.Contains(t, out, adminID)
	assert.Contains(t, out, bobID)

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, adminID) {
			assert.NotContains(t, line, "delete", "own row offers no delete")
		}
		if strings.HasPrefix(line, bobID) {
			assert.Contains(t, line, "delete")
		}
	}
}

func TestWrongPassword(t *testing.T) {
	fake := fakeapi.New()
	fake.AddUser("admin", "secret", models.RoleAdmin)

	out := runScript(t, fake, "login admin\nwrong\n")

	assert.Contains(t, out, "invalid credentials")
	assert.NotContains(t, out, "Admin Management")
}

func TestCreateAndDelete(t *testing.T) {
	fake := fakeapi.New()
	fake.AddUser("admin", "secret", models.RoleAdmin)
	bobID := fake.AddUser("bob", "pw", models.RoleUser)

	script := fmt.Sprintf(
		"login admin\nsecret\ncreate\ncarol\npw\n\ndelete %s\nyes\nquit\n",
		bobID,
	)
	out := runScript(t, fake, script)

	assert.Contains(t, out, "Created carol")
	assert.Contains(t, out, `? Confirm Deletion: Are you sure you want to delete the user "bob"?`)

	users := fake.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "carol", users[1].Username)
	assert.Equal(t, models.RoleUser, users[1].Role)
}

func TestLogoutAndCommands(t *testing.T) {
	fake := fakeapi.New()
	fake.AddUser("admin", "secret", models.RoleAdmin)

	out := runScript(t, fake, "help\nbogus\nlogin admin\nsecret\nmenu\naccount\nlogout\nno\nlogout\nyes\ngo /users\n")

	assert.Contains(t, out, "delete <uuid>")
	assert.Contains(t, out, `Error: unknown command "bogus", try help`)
	assert.Contains(t, out, "[/users] User Management")
	assert.Contains(t, out, "== Admin account ==")
	assert.Contains(t, out, "Username: admin")
	assert.Contains(t, out, "? Confirm logout: Are you sure you want to log out? [yes/no]")

	screens := strings.Split(out, "> ")
	require.GreaterOrEqual(t, len(screens), 2)
	afterGo := screens[len(screens)-2]
	assert.Contains(t, afterGo, "Please log in.", "after logout every path leads to login")
	assert.NotContains(t, afterGo, "UUID")
}

func TestSecretReader(t *testing.T) {
	fake := fakeapi.New()
	fake.AddUser("admin", "secret", models.RoleAdmin)
	srv := fake.Server()
	defer srv.Close()

	application, err := app.New(&config.Config{
		APIBaseURL:      srv.URL,
		LogLevel:        "debug",
		AdminOnly:       true,
		NotificationTTL: time.Minute,
	})
	require.NoError(t, err)
	defer func() {
		_ = application.Close()
	}()

	asked := 0
	var out bytes.Buffer
	sh := New(
		application.Console(),
		strings.NewReader("login admin\nquit\n"),
		&out,
		WithSecretReader(func() (string, error) {
			asked++
			return "secret", nil
		}),
	)
	require.NoError(t, sh.Run(context.Background()))

	assert.Equal(t, 1, asked)
	assert.Contains(t, out.String(), "== Admin Management ==")
}
