package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adminconsole/internal/fakeapi"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

func TestRootCmd(t *testing.T) {
	fake := fakeapi.New()
	fake.AddUser("admin", "secret", models.RoleAdmin)
	srv := fake.Server()
	defer srv.Close()

	tokenFile := filepath.Join(t.TempDir(), "token.json")

	run := func(input string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("login admin\nsecret\nquit\n", "--api-url", srv.URL, "--token-file", tokenFile, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin Management")

	out, err = run("quit\n", "--api-url", srv.URL, "--token-file", tokenFile, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin Management", "the session is resumed from the token file")

	_, err = run("quit\n", "--api-url", srv.URL, "--log-level", "bogus")
	assert.Error(t, err)

	_, err = run("", "extra-argument")
	assert.Error(t, err)
}
