package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager keeps the live sessions of the web UI in memory.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	defaults Defaults
	now      func() time.Time
}

func NewManager(d Defaults) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		defaults: d,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Create starts a fresh session.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := New(uuid.NewString(), m.now(), m.defaults)
	m.sessions[s.ID] = s
	return s
}

// Get returns the session for id and marks it as seen.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if ok {
		s.LastSeen = m.now()
	}
	return s, ok
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	return m.Create(), true
}

// End forgets a session.
func (m *Manager) End(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	n := 0
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
