package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/cricket-trumps/game/service"
)

var (
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
	ErrPlayerBusy           = errors.New("player already bound to another session")
)

// Manager is the registry of live game sessions. It also keeps finished
// sessions for a while so their final result can still be read.
type Manager struct {
	sessions map[string]*service.Session
	players  map[string]string
	finished map[string]*service.Session
	now      func() time.Time
	mu       sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		players:  make(map[string]string),
		finished: make(map[string]*service.Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func key(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Create registers a pending session. The session's first player is indexed
// from the match.
func (m *Manager) Create(sess *service.Session) error {
	if sess == nil || key(sess.ID) == "" {
		return ErrInvalidSessionID
	}
	player := sess.Match().PlayerA()

	m.mu.Lock()
	defer m.mu.Unlock()

	id := key(sess.ID)
	if _, exists := m.sessions[id]; exists {
		return ErrSessionAlreadyExists
	}
	if _, exists := m.finished[id]; exists {
		return ErrSessionAlreadyExists
	}
	if other, busy := m.players[player]; busy && other != id {
		return ErrPlayerBusy
	}

	m.sessions[id] = sess
	m.players[player] = id
	return nil
}

// Get retrieves a live session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[key(id)]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return sess, nil
}

// FindByPlayer returns the live session the player is seated in.
func (m *Manager) FindByPlayer(player string) (*service.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.players[player]
	if !ok {
		return nil, false
	}
	sess, ok := m.sessions[id]
	return sess, ok
}

// Bind indexes a second player against a live session.
func (m *Manager) Bind(id, player string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id = key(id)
	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	if other, busy := m.players[player]; busy && other != id {
		return ErrPlayerBusy
	}
	m.players[player] = id
	return nil
}

// Evict removes a live session and keeps it as finished. It reports whether
// this call did the eviction, so repeated calls are harmless.
func (m *Manager) Evict(id string) (*service.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.evictLocked(key(id))
}

func (m *Manager) evictLocked(id string) (*service.Session, bool) {
	sess, exists := m.sessions[id]
	if !exists {
		return nil, false
	}
	delete(m.sessions, id)
	for player, gameID := range m.players {
		if gameID == id {
			delete(m.players, player)
		}
	}
	m.finished[id] = sess
	return sess, true
}

// Finished returns an evicted session that has not been pruned yet.
func (m *Manager) Finished(id string) (*service.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.finished[key(id)]
	return sess, ok
}

// PruneFinished drops finished sessions that ended more than olderThan ago.
func (m *Manager) PruneFinished(olderThan time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-olderThan)
	removed := 0
	for id, sess := range m.finished {
		end := sess.FinishedAt()
		if end.IsZero() {
			end = sess.LastAccessed()
		}
		if end.Before(cutoff) {
			delete(m.finished, id)
			removed++
		}
	}
	return removed
}

// CleanupIdle evicts live sessions that have not been accessed within maxIdle
// and returns them.
func (m *Manager) CleanupIdle(maxIdle time.Duration) []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	var evicted []*service.Session
	for id, sess := range m.sessions {
		if sess.LastAccessed().Before(cutoff) {
			if s, ok := m.evictLocked(id); ok {
				evicted = append(evicted, s)
			}
		}
	}
	return evicted
}

// List returns all live sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
