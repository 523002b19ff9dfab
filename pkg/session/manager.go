package session

import (
	"sync"

	"github.com/shiv248/kolabpad/pkg/store"
)

// Manager maps document paths to their Session, creating one on first
// access and reclaiming it once its last participant stream releases it.
//
// The original design note for this component describes path->Weak
// reference counting so a session is dropped once nobody holds a strong
// reference to it. Go has no safe generic weak pointer at the Go version
// this module targets, so Manager counts live ParticipantStreams per
// session explicitly instead and removes the map entry the instant that
// count returns to zero - eager reclamation rather than the original's
// lazy reap-on-next-lookup, and stronger: a path can never be handed out
// a session that is mid-teardown.
type Manager struct {
	store store.Store

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager backed by s. A single Store instance is
// shared by every session the manager creates, since Store is already
// keyed by path.
func NewManager(s store.Store) *Manager {
	return &Manager{
		store:    s,
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the Session for path, creating it if necessary, and
// increments its reference count. Callers must call Release exactly once
// for each successful Acquire (ParticipantStream does this on Close).
func (m *Manager) Acquire(path string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[path]
	if !ok {
		s = newSession(path, m.store)
		m.sessions[path] = s
	}
	s.refs.Add(1)
	return s
}

// Release decrements path's session reference count, removing it from
// the manager once it reaches zero.
func (m *Manager) Release(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[path]
	if !ok {
		return
	}
	if s.refs.Add(-1) == 0 {
		delete(m.sessions, path)
	}
}

// ActiveSessions returns the number of paths with at least one active
// participant. Used for server statistics reporting.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
