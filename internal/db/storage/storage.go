// Package storage declares the contract of the durable client-side state.
// The console persists exactly one value: the auth token.
package storage

import (
	"context"
	"errors"
)

// ErrTokenNotFound is returned by LoadToken when nothing is persisted.
var ErrTokenNotFound = errors.New("auth token not found")

type Storage interface {
	LoadToken(ctx context.Context) (string, error)

	SaveToken(ctx context.Context, token string) error

	RemoveToken(ctx context.Context) error

	Ping(ctx context.Context) error

	Close() error
}
