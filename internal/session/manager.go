package session

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/mnemo/internal/errors"
)

// Factory builds a session for a new ID.
type Factory func(id string) *Session

// Manager is a registry of live sessions keyed by ULID.
type Manager struct {
	factory Factory
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty registry that creates sessions with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{
		factory:  factory,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new empty session.
func (m *Manager) Create() *Session {
	id := ulid.MustNew(ulid.Timestamp(m.now()), ulid.Monotonic(rand.Reader, 0)).String()
	s := m.factory(id)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id, or NOT_FOUND.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return s, nil
}

// Delete removes and closes a session. Returns false if it did not exist.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than idleTTL and returns how many were removed.
// A non-positive idleTTL disables eviction.
func (m *Manager) Sweep(idleTTL time.Duration) int {
	if idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-idleTTL)

	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx ends.
func (m *Manager) RunSweeper(ctx context.Context, interval, idleTTL time.Duration) {
	if interval <= 0 || idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(idleTTL)
		}
	}
}
