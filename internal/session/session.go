// Package session manages narration session lifecycles.
//
// A session owns one narration history and lives only in memory; ending a
// session discards its history. Sessions are independent: narrations in one
// never appear in another.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/echoverse/echoverse/internal/history"
)

// Sentinel errors returned by Session and Manager methods. Callers match
// them with errors.Is to pick a response status.
var (
	// ErrNotFound reports a session ID with no active session.
	ErrNotFound = errors.New("session not found")

	// ErrBusy reports an attempt to start a narration while one is already
	// in flight for the session.
	ErrBusy = errors.New("a narration is already in progress")

	// ErrEnded reports use of a session after End.
	ErrEnded = errors.New("session has ended")
)

// Session is one user's narration workspace. All exported methods are safe
// for concurrent use.
type Session struct {
	// ID is the unique identifier for this session.
	ID string

	// StartedAt is when the session was created.
	StartedAt time.Time

	// History holds this session's narration records, newest first.
	History *history.Store

	mu     sync.Mutex
	inUse  bool
	closed bool
}

// TryAcquire claims the session for one narration run. It fails when a run
// is already in flight or the session has been ended; the caller must not
// start concurrent narrations within one session.
func (s *Session) TryAcquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session %s: %w", s.ID, ErrEnded)
	}
	if s.inUse {
		return fmt.Errorf("session %s: %w", s.ID, ErrBusy)
	}
	s.inUse = true
	return nil
}

// Release returns the session to the idle state after a narration run.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inUse = false
}

// close marks the session ended. Further TryAcquire calls fail.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Manager tracks active sessions by ID. All exported methods are safe for
// concurrent use.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	historyCap int
}

// Option is a functional option for configuring a Manager.
type Option func(*Manager)

// WithHistoryCap bounds every session's history to n records. n <= 0 means
// unbounded, which is the default.
func WithHistoryCap(n int) Option {
	return func(m *Manager) {
		m.historyCap = n
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{sessions: make(map[string]*Session)}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create starts a new session with a fresh, empty history and returns it.
func (m *Manager) Create() *Session {
	var histOpts []history.Option
	if m.historyCap > 0 {
		histOpts = append(histOpts, history.WithCap(m.historyCap))
	}
	s := &Session{
		ID:        newID(),
		StartedAt: time.Now().UTC(),
		History:   history.New(histOpts...),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up an active session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// End removes the session and discards its history. Returns an error when
// no session with that ID is active.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	s.close()
	return nil
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// newID generates a random 16-byte hex session ID.
func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("session: read random bytes: %v", err))
	}
	return hex.EncodeToString(b[:])
}
