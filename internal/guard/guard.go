// Package guard decides which view may be shown for the current session.
package guard

import (
	"sync"

	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
	"github.com/patric-chuzhbe/adminconsole/internal/session"
)

const (
	LoginPath     = "/login"
	UsersPath     = "/users"
	MyAccountPath = "/my-account"
)

// Route is a view and the roles allowed to see it. A route without roles
// is public.
type Route struct {
	Path  string
	Roles []models.Role
}

func (r Route) Public() bool {
	return len(r.Roles) == 0
}

func (r Route) Allows(role models.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}

	return false
}

// DefaultRoutes is the console's route table.
var DefaultRoutes = []Route{
	{Path: LoginPath},
	{Path: UsersPath, Roles: []models.Role{models.RoleAdmin}},
	{Path: MyAccountPath, Roles: []models.Role{models.RoleAdmin, models.RoleUser}},
}

// State is the guard's view of the session.
type State struct {
	Authenticated bool
	Role          models.Role
}

// StateOf derives the guard state. A restored session that has no verified
// role yet is unauthenticated.
func StateOf(s session.Session) State {
	if !s.Authorized() {
		return State{}
	}

	return State{Authenticated: true, Role: s.Role}
}

// Decision is the outcome of resolving a path.
type Decision struct {
	Requested  string
	Path       string
	Redirected bool
}

type sessionSource interface {
	Snapshot() session.Session
	Subscribe(fn func(session.Event)) func()
}

// Guard holds the current route and re-evaluates it on session changes.
type Guard struct {
	sessions sessionSource
	routes   map[string]Route

	mu          sync.Mutex
	current     string
	unsubscribe func()
	listeners   []func(Decision)
}

func New(sessions sessionSource, routes []Route) *Guard {
	g := &Guard{
		sessions: sessions,
		routes:   make(map[string]Route, len(routes)),
		current:  LoginPath,
	}
	for _, route := range routes {
		g.routes[route.Path] = route
	}

	g.unsubscribe = sessions.Subscribe(func(session.Event) {
		g.Reevaluate()
	})

	return g
}

// Close detaches the guard from the session store.
func (g *Guard) Close() {
	g.unsubscribe()
}

// OnChange registers fn to be told about every route change made by
// Reevaluate.
func (g *Guard) OnChange(fn func(Decision)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.listeners = append(g.listeners, fn)
}

// Landing is the protected view an authenticated role lands on.
func Landing(role models.Role) string {
	if role == models.RoleAdmin {
		return UsersPath
	}

	return MyAccountPath
}

// Resolve applies the routing rules to path without moving the guard.
func (g *Guard) Resolve(path string) Decision {
	state := StateOf(g.sessions.Snapshot())

	route, known := g.routes[path]
	switch {
	case !known:
		target := LoginPath
		if state.Authenticated {
			target = Landing(state.Role)
		}
		return Decision{Requested: path, Path: target, Redirected: true}

	case route.Public():
		return Decision{Requested: path, Path: path}

	case state.Authenticated && route.Allows(state.Role):
		return Decision{Requested: path, Path: path}
	}

	return Decision{Requested: path, Path: LoginPath, Redirected: true}
}

// Navigate resolves path and makes the result the current route.
func (g *Guard) Navigate(path string) Decision {
	decision := g.Resolve(path)

	g.mu.Lock()
	g.current = decision.Path
	g.mu.Unlock()

	if decision.Redirected {
		logger.Log.Debugln("redirected", "from", decision.Requested, "to", decision.Path)
	}

	return decision
}

// Current is the route currently shown.
func (g *Guard) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.current
}

// Reevaluate re-applies the rules to the current route, e.g. after logout.
func (g *Guard) Reevaluate() Decision {
	decision := g.Navigate(g.Current())

	g.mu.Lock()
	listeners := append([]func(Decision){}, g.listeners...)
	g.mu.Unlock()

	if decision.Redirected {
		for _, fn := range listeners {
			fn(decision)
		}
	}

	return decision
}
