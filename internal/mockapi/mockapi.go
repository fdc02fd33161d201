// Package mockapi provides a testify-based mock implementation
// of the admin REST API client used by the session, user list and console
// packages. It is used for unit tests that need exact control over call
// results and ordering.
package mockapi

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

// APIMock is a testify mock that implements every API operation the
// console consumes.
//
// Use it in tests to simulate server behavior without a listener.
type APIMock struct {
	mock.Mock

	// OnListUsers is an optional function field that can be assigned
	// to define custom mock behavior for ListUsers in tests.
	//
	// If set, ListUsers will delegate to this function instead of
	// using testify's generic mock handler. Tests that need to hold a
	// response back (stale refresh races) use it.
	OnListUsers func(ctx context.Context, token string) (models.Users, error)
}

// Login mocks exchanging credentials for a token.
func (m *APIMock) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	args := m.Called(ctx, username, password)
	resp, _ := args.Get(0).(*models.LoginResponse)
	return resp, args.Error(1)
}

// ListUsers mocks fetching the user collection.
func (m *APIMock) ListUsers(ctx context.Context, token string) (models.Users, error) {
	if m.OnListUsers != nil {
		return m.OnListUsers(ctx, token)
	}
	args := m.Called(ctx, token)
	users, _ := args.Get(0).(models.Users)
	return users, args.Error(1)
}

// CreateUser mocks creating an account.
func (m *APIMock) CreateUser(
	ctx context.Context,
	token string,
	username string,
	password string,
	role models.Role,
) (*models.User, error) {
	args := m.Called(ctx, token, username, password, role)
	usr, _ := args.Get(0).(*models.User)
	return usr, args.Error(1)
}

// DeleteUser mocks removing an account.
func (m *APIMock) DeleteUser(ctx context.Context, token string, id string) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}
