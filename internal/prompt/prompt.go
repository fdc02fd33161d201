// Package prompt coordinates the two kinds of UI prompts: a transient
// notification that dismisses itself, and a blocking confirmation that
// waits for confirm or cancel. The two channels are independent.
package prompt

import (
	"context"
	"errors"
	"sync"
	"time"
)

const DefaultNotificationTTL = 5 * time.Second

// ErrPromptActive is returned by Ask while another confirmation is pending.
var ErrPromptActive = errors.New("a confirmation is already pending")

// ErrNoPrompt is returned by Confirm and Cancel when nothing is pending.
var ErrNoPrompt = errors.New("no confirmation is pending")

type Kind int

const (
	DeleteUser Kind = iota + 1
	Logout
)

// Confirmation is a blocking request. OnConfirm runs after the channel has
// been emptied, so it may itself show a notification.
type Confirmation struct {
	Kind      Kind
	Title     string
	Message   string
	SubjectID string
	OnConfirm func(ctx context.Context) error
}

// Coordinator owns both channels.
type Coordinator struct {
	ttl time.Duration

	mu         sync.Mutex
	message    string
	timer      *time.Timer
	generation uint64
	pending    *Confirmation
}

func New(ttl time.Duration) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}

	return &Coordinator{ttl: ttl}
}

// Notify shows msg, replacing any current message and restarting the
// dismiss timer.
func (c *Coordinator) Notify(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.message = msg
	c.generation++
	generation := c.generation
	c.timer = time.AfterFunc(c.ttl, func() {
		c.expire(generation)
	})
}

func (c *Coordinator) expire(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer Notify or a Dismiss already took over.
	if generation != c.generation {
		return
	}
	c.message = ""
	c.timer = nil
}

// Dismiss clears the message and cancels its timer.
func (c *Coordinator) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.generation++
	c.message = ""
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Notification returns the current message, if any.
func (c *Coordinator) Notification() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.message, c.message != ""
}

// Ask opens a blocking confirmation. Only one may be pending at a time.
func (c *Coordinator) Ask(req Confirmation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		return ErrPromptActive
	}
	c.pending = &req

	return nil
}

// Pending returns the open confirmation, if any.
func (c *Coordinator) Pending() (Confirmation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return Confirmation{}, false
	}

	return *c.pending, true
}

func (c *Coordinator) take() (*Confirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return nil, ErrNoPrompt
	}
	req := c.pending
	c.pending = nil

	return req, nil
}

// Confirm resolves the pending confirmation and runs its action.
func (c *Coordinator) Confirm(ctx context.Context) error {
	req, err := c.take()
	if err != nil {
		return err
	}

	if req.OnConfirm == nil {
		return nil
	}

	return req.OnConfirm(ctx)
}

// Cancel resolves the pending confirmation without running its action.
func (c *Coordinator) Cancel() error {
	_, err := c.take()

	return err
}

// Close stops the dismiss timer.
func (c *Coordinator) Close() {
	c.Dismiss()
}
