package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adminconsole/internal/db/memorystorage"
	"github.com/patric-chuzhbe/adminconsole/internal/mockapi"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
	"github.com/patric-chuzhbe/adminconsole/internal/session"
)

func setupGuard(t *testing.T, role models.Role) (*Guard, *session.Store) {
	t.Helper()

	api := &mockapi.APIMock{}
	api.On("Login", mock.Anything, "someone", "pw").
		Return(&models.LoginResponse{Token: "t", Role: role, UserID: "u1"}, nil)

	tokens, err := memorystorage.New()
	require.NoError(t, err)

	store := session.New(api, tokens)
	g := New(store, DefaultRoutes)
	t.Cleanup(g.Close)

	return g, store
}

func TestResolve(t *testing.T) {
	type want struct {
		path       string
		redirected bool
	}
	tests := []struct {
		name  string
		role  models.Role
		login bool
		path  string
		want  want
	}{
		{name: "anonymous sees login", path: LoginPath, want: want{LoginPath, false}},
		{name: "anonymous is sent to login from users", path: UsersPath, want: want{LoginPath, true}},
		{name: "anonymous is sent to login from account", path: MyAccountPath, want: want{LoginPath, true}},
		{name: "anonymous wildcard", path: "/nowhere", want: want{LoginPath, true}},
		{name: "admin sees users", role: models.RoleAdmin, login: true, path: UsersPath, want: want{UsersPath, false}},
		{name: "admin sees account", role: models.RoleAdmin, login: true, path: MyAccountPath, want: want{MyAccountPath, false}},
		{name: "admin wildcard lands on users", role: models.RoleAdmin, login: true, path: "/", want: want{UsersPath, true}},
		{name: "user may not see users", role: models.RoleUser, login: true, path: UsersPath, want: want{LoginPath, true}},
		{name: "user sees account", role: models.RoleUser, login: true, path: MyAccountPath, want: want{MyAccountPath, false}},
		{name: "user wildcard lands on account", role: models.RoleUser, login: true, path: "/x", want: want{MyAccountPath, true}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			g, store := setupGuard(t, testCase.role)
			if testCase.login {
				_, err := store.Login(context.Background(), "someone", "pw")
				require.NoError(t, err)
			}

			decision := g.Resolve(testCase.path)
			assert.Equal(t, testCase.want.path, decision.Path)
			assert.Equal(t, testCase.want.redirected, decision.Redirected)
			assert.Equal(t, testCase.path, decision.Requested)
		})
	}
}

func TestRestoredSessionIsNotAuthorized(t *testing.T) {
	ctx := context.Background()
	tokens, err := memorystorage.New()
	require.NoError(t, err)
	require.NoError(t, tokens.SaveToken(ctx, "persisted"))

	store := session.New(&mockapi.APIMock{}, tokens)
	g := New(store, DefaultRoutes)
	defer g.Close()

	_, err = store.Restore(ctx)
	require.NoError(t, err)

	assert.Equal(t, State{}, StateOf(store.Snapshot()))
	assert.Equal(t, LoginPath, g.Resolve(UsersPath).Path)
	assert.Equal(t, LoginPath, g.Resolve("/").Path)
}

func TestLogoutRedirectsCurrentRoute(t *testing.T) {
	ctx := context.Background()
	g, store := setupGuard(t, models.RoleAdmin)

	var changes []Decision
	g.OnChange(func(d Decision) { changes = append(changes, d) })

	_, err := store.Login(ctx, "someone", "pw")
	require.NoError(t, err)
	assert.Equal(t, UsersPath, g.Navigate(UsersPath).Path)
	assert.Equal(t, UsersPath, g.Current())

	require.NoError(t, store.Logout(ctx))

	assert.Equal(t, LoginPath, g.Current())
	require.Len(t, changes, 1)
	assert.Equal(t, UsersPath, changes[0].Requested)
	assert.Equal(t, LoginPath, g.Navigate(UsersPath).Path, "protected view stays closed after logout")
}
