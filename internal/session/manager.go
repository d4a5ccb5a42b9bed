package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/pkg/clock"
)

// Manager creates and tracks live sessions.
type Manager struct {
	deps *Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager fills in a real clock and the default logger when deps leaves
// them unset.
func NewManager(deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = clock.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{deps: &deps, sessions: make(map[string]*Session)}
}

// Create starts a session whose log holds the greeting.
func (m *Manager) Create(ctx context.Context) *Session {
	id := "sess_" + uuid.New().String()
	s := newSession(ctx, id, m.deps)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.deps.Logger.Info("session created", slog.String("session_id", id))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
