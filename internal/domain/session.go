package domain

import (
	"sync"
	"time"
)

// SessionState is the lifecycle state of a connection.
type SessionState int

const (
	// StateAuthenticated means the token was verified at upgrade time but
	// the client has not yet declared itself online.
	StateAuthenticated SessionState = iota
	// StateActive means the client sent go_online and may subscribe and send.
	StateActive
	// StateClosed is terminal; teardown has run.
	StateClosed
)

// Session tracks the per-connection state. The user identity is set once,
// before the connection enters the open state, and never changes.
type Session struct {
	ID           string
	UserID       string
	Username     string
	CreatedAt    time.Time
	LastActiveAt time.Time

	state SessionState
	mu    sync.RWMutex
}

// NewSession creates a session for an authenticated connection.
func NewSession(id, userID, username string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		UserID:       userID,
		Username:     username,
		CreatedAt:    now,
		LastActiveAt: now,
		state:        StateAuthenticated,
	}
}

// Activate transitions the session to the active state. It reports whether
// the session was already active, so callers can keep online notifications
// idempotent.
func (s *Session) Activate() (wasActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	wasActive = s.state == StateActive
	s.state = StateActive
	s.LastActiveAt = time.Now()
	return wasActive
}

// IsActive reports whether the session may subscribe and send.
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateActive
}

// Close transitions to the terminal state. It returns true only on the
// first call; a double-close must not double-fire offline teardown.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	return true
}

// UpdateActivity updates the last active timestamp.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
