package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/adminconsole/internal/fakeapi"
	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

func setupTestClient(t *testing.T) (*Client, *fakeapi.API, string) {
	t.Helper()
	require.NoError(t, logger.Init("debug"))

	api := fakeapi.New()
	adminID := api.AddUser("admin", "secret", models.RoleAdmin)

	srv := api.Server()
	t.Cleanup(srv.Close)

	return New(srv.URL), api, adminID
}

func loginAsAdmin(t *testing.T, client *Client) string {
	t.Helper()
	resp, err := client.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)

	return resp.Token
}

func TestLogin(t *testing.T) {
	client, api, adminID := setupTestClient(t)

	tests := []struct {
		name        string
		username    string
		password    string
		wantKind    error
		wantMessage string
	}{
		{
			name:     "positive",
			username: "admin",
			password: "secret",
		},
		{
			name:        "wrong password",
			username:    "admin",
			password:    "wrong",
			wantKind:    models.ErrAuth,
			wantMessage: "invalid credentials",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := client.Login(context.Background(), testCase.username, testCase.password)
			if testCase.wantKind != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, testCase.wantKind)
				assert.Equal(t, testCase.wantMessage, err.Error())
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, models.RoleAdmin, resp.Role)
			assert.Equal(t, adminID, resp.UserID)
			assert.NotEmpty(t, api.LastRequestID(), "every request should carry a request id")
		})
	}
}

func TestLoginWithoutServerMessage(t *testing.T) {
	client, api, _ := setupTestClient(t)
	api.FailNext("POST /api/login", http.StatusBadRequest, "")

	_, err := client.Login(context.Background(), "admin", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, msgLoginFailed, err.Error())
}

func TestLoginWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"role":"admin","uuid":"u1"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Login(context.Background(), "admin", "secret")
	assert.ErrorIs(t, err, models.ErrAuth)
}

func TestListUsers(t *testing.T) {
	client, api, adminID := setupTestClient(t)
	bobID := api.AddUser("bob", "x", models.RoleUser)
	token := loginAsAdmin(t, client)

	users, err := client.ListUsers(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.Users{
		{ID: adminID, Username: "admin", Role: models.RoleAdmin},
		{ID: bobID, Username: "bob", Role: models.RoleUser},
	}, users)

	t.Run("no token", func(t *testing.T) {
		_, err := client.ListUsers(context.Background(), "")
		assert.ErrorIs(t, err, models.ErrAuth)
	})

	t.Run("not an admin", func(t *testing.T) {
		resp, err := client.Login(context.Background(), "bob", "x")
		require.NoError(t, err)

		_, err = client.ListUsers(context.Background(), resp.Token)
		var apiErr *models.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
		assert.ErrorIs(t, err, models.ErrAuth)
		assert.Equal(t, "admin role required", apiErr.Message)
	})

	t.Run("server error without body", func(t *testing.T) {
		api.FailNext("GET /api/users", http.StatusInternalServerError, "")

		_, err := client.ListUsers(context.Background(), token)
		assert.ErrorIs(t, err, models.ErrServer)
		assert.Equal(t, msgListFailed, err.Error())
	})
}

func TestCreateUser(t *testing.T) {
	client, api, _ := setupTestClient(t)
	token := loginAsAdmin(t, client)

	usr, err := client.CreateUser(context.Background(), token, "bob", "x", models.RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "bob", usr.Username)
	assert.Equal(t, models.RoleUser, usr.Role)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := client.CreateUser(context.Background(), token, "bob", "y", models.RoleUser)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, "username already exists", err.Error())
	})

	t.Run("rejected before sending", func(t *testing.T) {
		hits := api.Hits("POST /api/users")

		_, err := client.CreateUser(context.Background(), token, "carol", "x", models.Role("root"))
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Contains(t, err.Error(), "Role")

		_, err = client.CreateUser(context.Background(), token, "", "x", models.RoleUser)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, "Username is required", err.Error())

		assert.Equal(t, hits, api.Hits("POST /api/users"))
	})
}

func TestDeleteUser(t *testing.T) {
	client, api, _ := setupTestClient(t)
	token := loginAsAdmin(t, client)
	bobID := api.AddUser("bob", "x", models.RoleUser)

	require.NoError(t, client.DeleteUser(context.Background(), token, bobID))
	assert.Len(t, api.Users(), 1)

	err := client.DeleteUser(context.Background(), token, bobID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, "user not found", err.Error())
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL).ListUsers(context.Background(), "token")
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uuid": 42`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListUsers(context.Background(), "token")
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestCreateUserIncompleteBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	usr, err := New(srv.URL).CreateUser(context.Background(), "token", "bob", "pw", models.RoleUser)
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Equal(t, "Failed to create user.", err.Error())
	assert.Nil(t, usr)
}
