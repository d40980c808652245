package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/templui/fileshare/internal/model"
)

type SessionEventType string

const (
	SessionSignedUp  SessionEventType = model.ActivitySignUp
	SessionSignedIn  SessionEventType = model.ActivitySignIn
	SessionSignedOut SessionEventType = model.ActivitySignOut
)

// SessionEvent describes a change in a user's authentication state.
type SessionEvent struct {
	Type   SessionEventType
	UserID string
	Email  string
	Method string // "password", "google", "github"
	IP     string
	At     time.Time
}

// SessionEvents fans session changes out to subscribers.
type SessionEvents struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(SessionEvent)
}

func NewSessionEvents() *SessionEvents {
	return &SessionEvents{subs: make(map[int]func(SessionEvent))}
}

// Subscribe registers fn and returns a func that removes it again.
func (e *SessionEvents) Subscribe(fn func(SessionEvent)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Publish calls every subscriber synchronously. A panicking subscriber is logged and skipped.
func (e *SessionEvents) Publish(ev SessionEvent) {
	e.mu.RLock()
	subs := make([]func(SessionEvent), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.RUnlock()

	for _, fn := range subs {
		deliver(fn, ev)
	}
}

func deliver(fn func(SessionEvent), ev SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session subscriber panicked", "event", ev.Type, "panic", r)
		}
	}()
	fn(ev)
}
