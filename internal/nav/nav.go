// Package nav holds the sidebar and header state shared by every
// protected view.
package nav

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/patric-chuzhbe/adminconsole/internal/guard"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

type MenuItem struct {
	Text string
	Path string
}

// Menu lists the entries the sidebar offers to role.
func Menu(role models.Role) []MenuItem {
	if role == models.RoleAdmin {
		return []MenuItem{
			{Text: "User Management", Path: guard.UsersPath},
			{Text: "My Account", Path: guard.MyAccountPath},
		}
	}

	return []MenuItem{
		{Text: "My Account", Path: guard.MyAccountPath},
	}
}

// Title formats a header title: first letter upper-cased, or the
// application name when empty.
func Title(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "My Application"
	}

	first, size := utf8.DecodeRuneInString(title)

	return string(unicode.ToUpper(first)) + title[size:]
}

// Sidebar is the collapsible navigation drawer. It starts closed.
type Sidebar struct {
	mu   sync.Mutex
	open bool
}

func (s *Sidebar) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
}

func (s *Sidebar) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

func (s *Sidebar) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open

	return s.open
}

func (s *Sidebar) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.open
}
