// Package userlist keeps the client-side copy of the user collection in
// step with the server.
//
// Creation is optimistic: the created user is appended as soon as the
// server answers, without a re-fetch. Deletion is confirm-then-apply: a row
// leaves the collection only after the server confirmed the delete.
package userlist

import (
	"context"
	"errors"
	"sync"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
	"github.com/patric-chuzhbe/adminconsole/internal/session"
)

// ErrSelfDelete is returned when the caller tries to delete their own row.
var ErrSelfDelete = errors.New("you cannot delete your own account")

// ErrSessionChanged is returned by Refresh when the session that issued
// the request is gone by the time the answer arrives; the answer is dropped.
var ErrSessionChanged = errors.New("session changed while the request was in flight")

type usersAPI interface {
	ListUsers(ctx context.Context, token string) (models.Users, error)

	CreateUser(
		ctx context.Context,
		token string,
		username string,
		password string,
		role models.Role,
	) (*models.User, error)

	DeleteUser(ctx context.Context, token string, id string) error
}

type sessionKeeper interface {
	Snapshot() session.Session
	IdentityHint() string
	Verify(usr models.User) bool
	Invalidate(ctx context.Context, reason error) error
	Subscribe(fn func(session.Event)) func()
}

// Row is one rendered entry of the list.
type Row struct {
	models.User
	Deletable bool
}

// View is what the users screen shows.
type View struct {
	Loading bool
	Loaded  bool
	Err     error
	Rows    []Row
}

// Synchronizer owns the local collection.
type Synchronizer struct {
	api      usersAPI
	sessions sessionKeeper

	mu        sync.Mutex
	users     models.Users
	self      models.User
	selfFound bool
	inFlight  int
	loaded    bool
	err       error

	background  sync.WaitGroup
	unsubscribe func()
}

func New(api usersAPI, sessions sessionKeeper) *Synchronizer {
	return &Synchronizer{
		api:      api,
		sessions: sessions,
		users:    models.Users{},
	}
}

// Watch re-fetches after every admin sign-in and clears local state on
// sign-out. Only admins may list users.
func (s *Synchronizer) Watch() {
	s.unsubscribe = s.sessions.Subscribe(func(e session.Event) {
		switch e.Kind {
		case session.LoggedIn:
			if e.Session.Role == models.RoleAdmin {
				s.RefreshAsync(context.Background())
			}
		case session.LoggedOut, session.Invalidated:
			s.Reset()
		}
	})
}

// Close stops watching the session and waits for background refreshes.
func (s *Synchronizer) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.Wait()
}

// RefreshAsync starts a Refresh without waiting for it.
func (s *Synchronizer) RefreshAsync(ctx context.Context) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.Refresh(ctx); err != nil {
			logger.Log.Debugln("Error calling the `s.Refresh()`:", zap.Error(err))
		}
	}()
}

// Wait blocks until every background refresh has completed.
func (s *Synchronizer) Wait() {
	s.background.Wait()
}

// Refresh fetches the whole collection and replaces local state with it.
// Concurrent refreshes are not cancelled: whichever completes last wins.
func (s *Synchronizer) Refresh(ctx context.Context) (models.Users, error) {
	issued := s.sessions.Snapshot()

	s.mu.Lock()
	s.inFlight++
	s.err = nil
	s.mu.Unlock()

	users, err := s.api.ListUsers(ctx, issued.Token)

	if err != nil {
		s.mu.Lock()
		s.inFlight--
		if s.sessions.Snapshot().Token != issued.Token {
			s.mu.Unlock()
			return nil, ErrSessionChanged
		}
		s.err = err
		s.mu.Unlock()

		if errors.Is(err, models.ErrAuth) {
			if invErr := s.sessions.Invalidate(ctx, err); invErr != nil {
				logger.Log.Debugln("Error calling the `s.sessions.Invalidate()`:", zap.Error(invErr))
			}
		}

		return nil, err
	}

	fetched := append(models.Users{}, users...)

	// Checked under s.mu so a concurrent Reset is never overwritten.
	s.mu.Lock()
	s.inFlight--
	current := s.sessions.Snapshot()
	if current.Token != issued.Token {
		s.mu.Unlock()
		return nil, ErrSessionChanged
	}

	selfID := current.UserID
	verifying := !current.Authorized()
	if verifying {
		selfID = s.sessions.IdentityHint()
	}
	self, selfFound := findByID(fetched, selfID)

	s.users = fetched
	s.self = self
	s.selfFound = selfFound
	s.loaded = true
	s.mu.Unlock()

	if verifying && selfFound {
		s.sessions.Verify(self)
	}

	return append(models.Users{}, fetched...), nil
}

func findByID(users models.Users, id string) (models.User, bool) {
	if id == "" {
		return models.User{}, false
	}

	found := funk.Find(users, func(u models.User) bool {
		return u.ID == id
	})
	if found == nil {
		return models.User{}, false
	}

	return found.(models.User), true
}

// ApplyCreate appends a user the server has just created. A user whose id
// is already present is not added twice.
func (s *Synchronizer) ApplyCreate(usr models.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := findByID(s.users, usr.ID); exists {
		return false
	}
	s.users = append(s.users, usr)

	return true
}

// ApplyDelete removes a user the server has confirmed as deleted.
func (s *Synchronizer) ApplyDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := findByID(s.users, id); !exists {
		return false
	}
	remaining := funk.Filter([]models.User(s.users), func(u models.User) bool {
		return u.ID != id
	}).([]models.User)
	s.users = models.Users(remaining)

	return true
}

// Create asks the server to create a user and appends the result.
func (s *Synchronizer) Create(
	ctx context.Context,
	username string,
	password string,
	role models.Role,
) (*models.User, error) {
	token := s.sessions.Snapshot().Token

	usr, err := s.api.CreateUser(ctx, token, username, password, role)
	if err != nil {
		return nil, err
	}
	s.ApplyCreate(*usr)

	return usr, nil
}

// Delete asks the server to delete a user and removes it once confirmed.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	current := s.sessions.Snapshot()
	if id == current.UserID {
		return ErrSelfDelete
	}

	if err := s.api.DeleteUser(ctx, current.Token, id); err != nil {
		return err
	}
	s.ApplyDelete(id)

	return nil
}

// Reset forgets everything; used on sign-out.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = models.Users{}
	s.self = models.User{}
	s.selfFound = false
	s.loaded = false
	s.err = nil
}

// Users returns a copy of the collection in display order.
func (s *Synchronizer) Users() models.Users {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append(models.Users{}, s.users...)
}

// Self is the caller's own row. ok is false when the caller was not found,
// in which case the returned value is a placeholder and must not be used
// for any authorization decision.
func (s *Synchronizer) Self() (usr models.User, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.self, s.selfFound
}

// Find looks a user up in the local collection.
func (s *Synchronizer) Find(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return findByID(s.users, id)
}

// Rows returns the collection with the delete action resolved per row.
// The caller's own row is never deletable.
func (s *Synchronizer) Rows() []Row {
	current := s.sessions.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]Row, 0, len(s.users))
	for _, u := range s.users {
		rows = append(rows, Row{
			User:      u,
			Deletable: current.Authorized() && u.ID != current.UserID,
		})
	}

	return rows
}

// View reports the state of the users screen. A fetch error suppresses
// the rows.
func (s *Synchronizer) View() View {
	rows := s.Rows()

	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		Loading: s.inFlight > 0,
		Loaded:  s.loaded,
		Err:     s.err,
	}
	if view.Err == nil && !view.Loading {
		view.Rows = rows
	}

	return view
}
