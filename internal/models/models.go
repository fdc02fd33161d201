package models

import (
	"errors"
	"fmt"
	"net/http"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the roles the console knows about.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID       string `json:"uuid"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type Users []User

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	Role   Role   `json:"role"`
	UserID string `json:"uuid"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"required,oneof=admin user"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

const (
	StorageTypeUnknown = iota
	StorageTypeFile
	StorageTypeMemory
)

var (
	ErrNetwork    = errors.New("network error")
	ErrAuth       = errors.New("auth error")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found error")
	ErrServer     = errors.New("server error")
)

// APIError is the normalized failure of a single API call.
// Kind is one of the Err* sentinels above, so callers match it with errors.Is.
type APIError struct {
	Kind    error
	Status  int
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}

	return []error{e.Kind}
}

func NewAPIError(kind error, status int, message string) *APIError {
	return &APIError{
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// KindByStatus maps a non-success HTTP status to an error kind.
func KindByStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 400 && status < 500:
		return ErrValidation
	case status >= 500:
		return ErrServer
	}

	return fmt.Errorf("%w: unexpected status %d", ErrServer, status)
}
