package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blag/scheduler/internal/instrumentation"
)

// DefaultTimeout is how long an idle session survives before cleanup.
const DefaultTimeout = time.Hour

const cleanupInterval = 10 * time.Minute

// Manager owns the session map. Each guest gets their own session so that
// concurrent guests never see each other's grants or slot lists.
type Manager struct {
	sessions      map[string]*Session
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	timeout       time.Duration
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger used for cleanup logging.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerMetrics wires the active session gauge.
func WithManagerMetrics(metrics *instrumentation.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a session manager and starts its cleanup goroutine.
// Callers must Stop it on shutdown.
func NewManager(timeout time.Duration, opts ...ManagerOption) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	m := &Manager{
		sessions:      make(map[string]*Session),
		cleanupTicker: time.NewTicker(cleanupInterval),
		cleanupDone:   make(chan struct{}),
		timeout:       timeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.cleanupExpiredSessions()

	return m
}

// Get returns the session for id, refreshing its idle timer.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		sess.touch()
	}
	return sess, ok
}

// Create registers a new anonymous session under a fresh identifier.
func (m *Manager) Create() *Session {
	sess := newSession(uuid.NewString())

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.metrics.AddActiveSessions(context.Background(), 1)
	return sess
}

// GetOrCreate returns the session for id, or a new one when id is empty or
// unknown. An unknown id means the guest's previous session expired; they
// start over anonymously.
func (m *Manager) GetOrCreate(id string) *Session {
	if id != "" {
		if sess, ok := m.Get(id); ok {
			return sess
		}
	}
	return m.Create()
}

// Remove drops the session from the map.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.metrics.AddActiveSessions(context.Background(), -1)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			now := time.Now()
			expired := 0

			m.mu.Lock()
			for id, sess := range m.sessions {
				if sess.idleSince(now) > m.timeout {
					delete(m.sessions, id)
					expired++
				}
			}
			m.mu.Unlock()

			if expired > 0 {
				m.metrics.AddActiveSessions(context.Background(), int64(-expired))
				m.logger.Info("cleaned up expired sessions", slog.Int("count", expired))
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// Stop halts the cleanup goroutine.
func (m *Manager) Stop() {
	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
	}
	if m.cleanupDone != nil {
		close(m.cleanupDone)
	}
}
