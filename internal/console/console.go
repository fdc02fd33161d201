// Package console is the controller behind every screen of the admin
// console: the login form, the users view with its create dialog and
// delete confirmation, the account page and the shared header/sidebar.
//
// It owns no transport of its own. Every flow is expressed through the
// session store, the route guard, the user list synchronizer and the
// prompt coordinator, so any front-end can drive it.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/adminconsole/internal/guard"
	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
	"github.com/patric-chuzhbe/adminconsole/internal/nav"
	"github.com/patric-chuzhbe/adminconsole/internal/prompt"
	"github.com/patric-chuzhbe/adminconsole/internal/session"
	"github.com/patric-chuzhbe/adminconsole/internal/userlist"
)

const (
	usersTitle         = "Admin Management"
	deleteTitle        = "Confirm Deletion"
	logoutTitle        = "Confirm logout"
	logoutMessage      = "Are you sure you want to log out?"
	sessionEndedNotice = "Your session has ended. Please log in again."
)

var (
	// ErrNotPermitted is returned when the current route does not offer
	// the requested action.
	ErrNotPermitted = errors.New("action not available on this screen")

	// ErrDialogClosed is returned by SubmitCreate when the dialog is not open.
	ErrDialogClosed = errors.New("the create user dialog is not open")

	// ErrUnknownUser is returned by RequestDelete for an id not in the list.
	ErrUnknownUser = errors.New("no such user in the list")
)

// LoginForm is the state of the login screen.
type LoginForm struct {
	Error   string
	Loading bool
}

// CreateDialog is the state of the create user dialog.
type CreateDialog struct {
	Open       bool
	Submitting bool
}

// Account is what the account page shows.
type Account struct {
	Username string
	Role     models.Role
}

// Screen is a render-ready snapshot of everything a front-end draws.
type Screen struct {
	Path         string
	Title        string
	Menu         []nav.MenuItem
	SidebarOpen  bool
	Login        LoginForm
	Users        userlist.View
	Create       CreateDialog
	Account      Account
	Notification string
	Confirmation prompt.Confirmation
	Confirming   bool
}

// Console wires the flows together.
type Console struct {
	sessions *session.Store
	users    *userlist.Synchronizer
	guard    *guard.Guard
	prompts  *prompt.Coordinator
	sidebar  nav.Sidebar

	mu       sync.Mutex
	login    LoginForm
	create   CreateDialog
	username string

	unsubscribe func()
}

func New(
	sessions *session.Store,
	users *userlist.Synchronizer,
	routes *guard.Guard,
	prompts *prompt.Coordinator,
) *Console {
	c := &Console{
		sessions: sessions,
		users:    users,
		guard:    routes,
		prompts:  prompts,
	}

	c.unsubscribe = sessions.Subscribe(c.onSessionEvent)

	return c
}

func (c *Console) onSessionEvent(e session.Event) {
	switch e.Kind {
	case session.LoggedOut, session.Invalidated:
		c.mu.Lock()
		c.create = CreateDialog{}
		c.username = ""
		if e.Kind == session.Invalidated {
			c.login.Error = sessionEndedNotice
		}
		c.mu.Unlock()

		c.sidebar.Close()
		if _, pending := c.prompts.Pending(); pending {
			_ = c.prompts.Cancel()
		}
	}
}

// Close detaches the console and stops its background work.
func (c *Console) Close() {
	c.unsubscribe()
	c.users.Close()
	c.guard.Close()
	c.prompts.Close()
}

// Start restores a persisted session. A restored token is only trusted
// once a fetch of the user list has found its owner; until then the
// console stays on the login screen.
func (c *Console) Start(ctx context.Context) error {
	restored, err := c.sessions.Restore(ctx)
	if err != nil {
		return err
	}
	if restored.Absent() {
		c.guard.Navigate(guard.LoginPath)
		return nil
	}

	if _, err := c.users.Refresh(ctx); err != nil {
		logger.Log.Debugln("Error calling the `c.users.Refresh()`:", zap.Error(err))

		if !errors.Is(err, models.ErrAuth) {
			c.mu.Lock()
			c.login.Error = err.Error()
			c.mu.Unlock()
		}
	}

	current := c.sessions.Snapshot()
	if !current.Authorized() {
		c.guard.Navigate(guard.LoginPath)
		return nil
	}

	if self, ok := c.users.Self(); ok {
		c.mu.Lock()
		c.username = self.Username
		c.mu.Unlock()
	}
	c.guard.Navigate(guard.Landing(current.Role))

	return nil
}

// SubmitLogin signs in. Failures stay inline on the login form and leave
// the session untouched.
func (c *Console) SubmitLogin(ctx context.Context, username, password string) error {
	c.mu.Lock()
	c.login = LoginForm{Loading: true}
	c.mu.Unlock()

	signed, err := c.sessions.Login(ctx, username, password)

	c.mu.Lock()
	c.login.Loading = false
	if err != nil {
		c.login.Error = err.Error()
	} else {
		c.username = username
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}

	c.guard.Navigate(guard.Landing(signed.Role))

	return nil
}

// Navigate moves to path through the guard. Arriving on the users view
// before anything was fetched starts a fetch.
func (c *Console) Navigate(ctx context.Context, path string) guard.Decision {
	decision := c.guard.Navigate(path)

	if decision.Path == guard.UsersPath {
		view := c.users.View()
		if !view.Loaded && !view.Loading {
			c.users.RefreshAsync(ctx)
		}
	}

	return decision
}

// Refresh re-fetches the user list.
func (c *Console) Refresh(ctx context.Context) error {
	if c.guard.Current() != guard.UsersPath {
		return ErrNotPermitted
	}
	_, err := c.users.Refresh(ctx)

	return err
}

// Wait blocks until background fetches are done.
func (c *Console) Wait() {
	c.users.Wait()
}

func (c *Console) OpenCreate() error {
	if c.guard.Current() != guard.UsersPath {
		return ErrNotPermitted
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.create = CreateDialog{Open: true}

	return nil
}

func (c *Console) CloseCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.create = CreateDialog{}
}

// SubmitCreate creates a user from the open dialog. The dialog closes
// either way; a failure is reported as a notification.
func (c *Console) SubmitCreate(
	ctx context.Context,
	username string,
	password string,
	role models.Role,
) (*models.User, error) {
	c.mu.Lock()
	if !c.create.Open || c.create.Submitting {
		c.mu.Unlock()
		return nil, ErrDialogClosed
	}
	c.create.Submitting = true
	c.mu.Unlock()

	usr, err := c.users.Create(ctx, username, password, role)

	c.CloseCreate()
	if err != nil {
		c.prompts.Notify(err.Error())
		return nil, err
	}

	return usr, nil
}

// RequestDelete opens the delete confirmation for id.
func (c *Console) RequestDelete(id string) error {
	if c.guard.Current() != guard.UsersPath {
		return ErrNotPermitted
	}
	if id == c.sessions.Snapshot().UserID {
		return userlist.ErrSelfDelete
	}

	usr, ok := c.users.Find(id)
	if !ok {
		return ErrUnknownUser
	}

	return c.prompts.Ask(prompt.Confirmation{
		Kind:  prompt.DeleteUser,
		Title: deleteTitle,
		Message: fmt.Sprintf(
			"Are you sure you want to delete the user %q? This action cannot be undone.",
			usr.Username,
		),
		SubjectID: id,
		OnConfirm: func(ctx context.Context) error {
			if err := c.users.Delete(ctx, id); err != nil {
				c.prompts.Notify(err.Error())
				return err
			}
			return nil
		},
	})
}

// RequestLogout opens the logout confirmation.
func (c *Console) RequestLogout() error {
	if !c.sessions.Snapshot().Authorized() {
		return ErrNotPermitted
	}

	return c.prompts.Ask(prompt.Confirmation{
		Kind:    prompt.Logout,
		Title:   logoutTitle,
		Message: logoutMessage,
		OnConfirm: func(ctx context.Context) error {
			err := c.sessions.Logout(ctx)
			c.guard.Navigate(guard.LoginPath)
			return err
		},
	})
}

// Confirm resolves the pending confirmation with yes.
func (c *Console) Confirm(ctx context.Context) error {
	return c.prompts.Confirm(ctx)
}

// Cancel resolves the pending confirmation with no.
func (c *Console) Cancel() error {
	return c.prompts.Cancel()
}

func (c *Console) Dismiss() {
	c.prompts.Dismiss()
}

func (c *Console) ToggleSidebar() bool {
	return c.sidebar.Toggle()
}

// Screen snapshots the current state for rendering.
func (c *Console) Screen() Screen {
	current := c.sessions.Snapshot()
	path := c.guard.Current()

	c.mu.Lock()
	screen := Screen{
		Path:   path,
		Login:  c.login,
		Create: c.create,
		Account: Account{
			Username: c.username,
			Role:     current.Role,
		},
	}
	c.mu.Unlock()

	screen.SidebarOpen = c.sidebar.IsOpen()
	screen.Notification, _ = c.prompts.Notification()
	screen.Confirmation, screen.Confirming = c.prompts.Pending()

	switch path {
	case guard.UsersPath:
		screen.Title = nav.Title(usersTitle)
		screen.Users = c.users.View()
	case guard.MyAccountPath:
		screen.Title = nav.Title(string(current.Role) + " account")
	}

	if current.Authorized() {
		screen.Menu = nav.Menu(current.Role)
	}

	return screen
}
