// Package session holds the console's belief about who is signed in.
//
// A Store is the single owner of that state. All changes go through Login,
// Logout, Invalidate, Restore and Verify, and every change is announced to
// subscribers after the store lock is released.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/adminconsole/internal/db/storage"
	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

// Session is a snapshot of the store. After Login or Logout it is either
// fully populated or empty; a restored session carries only the token until
// Verify completes it.
type Session struct {
	Token  string
	UserID string
	Role   models.Role
}

// Absent reports whether nobody is signed in and no token is held.
func (s Session) Absent() bool {
	return s.Token == ""
}

// Authorized reports whether the session may be used for authorization.
func (s Session) Authorized() bool {
	return s.Token != "" && s.UserID != "" && s.Role.Valid()
}

type EventKind int

const (
	LoggedIn EventKind = iota + 1
	LoggedOut
	Invalidated
	Restored
	Verified
)

func (k EventKind) String() string {
	switch k {
	case LoggedIn:
		return "logged in"
	case LoggedOut:
		return "logged out"
	case Invalidated:
		return "invalidated"
	case Restored:
		return "restored"
	case Verified:
		return "verified"
	}

	return fmt.Sprintf("event(%d)", int(k))
}

type Event struct {
	Kind    EventKind
	Session Session
	Reason  error
}

type authenticator interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
}

// ErrAdminOnly is the reason a non-admin login is refused when the store
// only admits admins.
var ErrAdminOnly = errors.New("only admin users are allowed")

const adminOnlyMessage = "Login failed: Only admin users are allowed."

// Store is the single owner of the Session.
type Store struct {
	api       authenticator
	tokens    storage.Storage
	adminOnly bool
	now       func() time.Time

	mu       sync.Mutex
	current  Session
	hintID   string
	handlers map[int]func(Event)
	nextID   int
}

type InitOption func(*Store)

// WithAdminOnly refuses sign-in for every role but admin.
func WithAdminOnly(adminOnly bool) InitOption {
	return func(s *Store) {
		s.adminOnly = adminOnly
	}
}

// WithClock replaces time.Now for token expiry checks.
func WithClock(now func() time.Time) InitOption {
	return func(s *Store) {
		s.now = now
	}
}

func New(api authenticator, tokens storage.Storage, optionsProto ...InitOption) *Store {
	s := &Store{
		api:      api,
		tokens:   tokens,
		now:      time.Now,
		handlers: map[int]func(Event){},
	}
	for _, protoOption := range optionsProto {
		protoOption(s)
	}

	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// IdentityHint is the user id read from the restored token, if any.
// It never authorizes anything by itself.
func (s *Store) IdentityHint() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hintID
}

// Subscribe registers fn for every session event and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

func (s *Store) emit(event Event) {
	s.mu.Lock()
	handlers := make([]func(Event), 0, len(s.handlers))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.handlers[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}

// Login authenticates against the API. On success the whole session is
// replaced and the token persisted; on any failure nothing changes.
func (s *Store) Login(ctx context.Context, username, password string) (Session, error) {
	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}

	if !resp.Role.Valid() || resp.UserID == "" {
		return Session{}, models.NewAPIError(models.ErrAuth, 0, "Failed to log in")
	}

	if s.adminOnly && resp.Role != models.RoleAdmin {
		return Session{}, &models.APIError{
			Kind:    models.ErrAuth,
			Message: adminOnlyMessage,
			Cause:   ErrAdminOnly,
		}
	}

	if err := s.tokens.SaveToken(ctx, resp.Token); err != nil {
		return Session{}, fmt.Errorf("persist auth token: %w", err)
	}

	next := Session{
		Token:  resp.Token,
		UserID: resp.UserID,
		Role:   resp.Role,
	}

	s.mu.Lock()
	s.current = next
	s.hintID = ""
	s.mu.Unlock()

	logger.Log.Infoln("signed in", "userID", next.UserID, "role", next.Role)
	s.emit(Event{Kind: LoggedIn, Session: next})

	return next, nil
}

// Logout clears the session and the persisted token.
func (s *Store) Logout(ctx context.Context) error {
	return s.clear(ctx, Event{Kind: LoggedOut})
}

// Invalidate is Logout caused by the server rejecting the credentials.
func (s *Store) Invalidate(ctx context.Context, reason error) error {
	return s.clear(ctx, Event{Kind: Invalidated, Reason: reason})
}

func (s *Store) clear(ctx context.Context, event Event) error {
	s.mu.Lock()
	s.current = Session{}
	s.hintID = ""
	s.mu.Unlock()

	err := s.tokens.RemoveToken(ctx)
	if err != nil {
		logger.Log.Debugln("Error calling the `s.tokens.RemoveToken()`:", zap.Error(err))
	}

	logger.Log.Infoln("signed out", "reason", event.Kind.String())
	s.emit(event)

	if err != nil {
		return fmt.Errorf("remove auth token: %w", err)
	}

	return nil
}

// Restore loads the persisted token. The result holds the token only:
// identity and role stay absent until Verify succeeds, so a restored
// session is never authorized on its own.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	token, err := s.tokens.LoadToken(ctx)
	if errors.Is(err, storage.ErrTokenNotFound) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("load auth token: %w", err)
	}

	hint, expired := s.inspect(token)
	if expired {
		logger.Log.Infoln("discarding expired auth token")
		if err := s.tokens.RemoveToken(ctx); err != nil {
			return Session{}, fmt.Errorf("remove auth token: %w", err)
		}
		return Session{}, nil
	}

	restored := Session{Token: token}

	s.mu.Lock()
	s.current = restored
	s.hintID = hint
	s.mu.Unlock()

	s.emit(Event{Kind: Restored, Session: restored})

	return restored, nil
}

// Verify completes a restored session once the user behind the token has
// been found in server data. It only succeeds when the session is still
// restored-unverified and usr matches the identity hint.
func (s *Store) Verify(usr models.User) bool {
	s.mu.Lock()
	if s.current.Token == "" || s.current.UserID != "" || s.hintID == "" ||
		usr.ID != s.hintID || !usr.Role.Valid() {
		s.mu.Unlock()
		return false
	}
	if s.adminOnly && usr.Role != models.RoleAdmin {
		s.mu.Unlock()
		return false
	}

	s.current.UserID = usr.ID
	s.current.Role = usr.Role
	s.hintID = ""
	verified := s.current
	s.mu.Unlock()

	logger.Log.Infoln("restored session verified", "userID", verified.UserID, "role", verified.Role)
	s.emit(Event{Kind: Verified, Session: verified})

	return true
}

// tokenClaims are the claims the console looks at. The signature is not
// checked: the client has no key and uses them for hints only.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	UUID   string `json:"uuid"`
}

func (s *Store) inspect(token string) (hint string, expired bool) {
	claims := &tokenClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return "", false
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now()) {
		return "", true
	}

	switch {
	case claims.UserID != "":
		return claims.UserID, false
	case claims.UUID != "":
		return claims.UUID, false
	}

	return claims.Subject, false
}
