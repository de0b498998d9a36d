package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"threadkeeper/internal/domain"
	repo "threadkeeper/internal/domain/repositories/assistant"
)

const (
	// InactivityTimeout is how long a session may stay idle before cleanup.
	InactivityTimeout = 24 * time.Hour

	// CleanupInterval is how often idle sessions are swept.
	CleanupInterval = 1 * time.Hour

	// MaxSessions caps live sessions; the least recently used one is evicted beyond it.
	MaxSessions = 1000
)

// Manager owns the sessions of a process, keyed by session ID.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	defaultThreadID string
	assistantID     string
	bindings        repo.ThreadBindingRepository // optional
	logger          *slog.Logger
}

// NewManager creates a manager. New sessions use the thread bound to their key
// in bindings, falling back to defaultThreadID. bindings may be nil.
func NewManager(defaultThreadID, assistantID string, bindings repo.ThreadBindingRepository, logger *slog.Logger) *Manager {
	return &Manager{
		sessions:        make(map[string]*Session),
		defaultThreadID: defaultThreadID,
		assistantID:     assistantID,
		bindings:        bindings,
		logger:          logger,
	}
}

// GetOrCreate returns the session for id, creating it on first interaction.
func (m *Manager) GetOrCreate(ctx context.Context, id string) *Session {
	now := time.Now()

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.touch(now)
		return s
	}
	m.mu.Unlock()

	// resolve outside the lock: the binding lookup may hit the database
	threadID := m.resolveThread(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()

	// another request may have created it meanwhile
	if s, ok := m.sessions[id]; ok {
		s.touch(now)
		return s
	}
	if len(m.sessions) >= MaxSessions {
		m.evictLRU()
	}

	s := New(id, threadID, m.assistantID)
	m.sessions[id] = s
	m.logger.Debug("session created", "session_id", id, "thread_id", threadID)
	return s
}

// Remove tears a session down.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle since before now-InactivityTimeout and returns how many.
func (m *Manager) Sweep(now time.Time) int {
	cutoff := now.Add(-InactivityTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps idle sessions every CleanupInterval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				m.logger.Info("idle sessions removed", "count", n)
			}
		}
	}
}

func (m *Manager) resolveThread(ctx context.Context, id string) string {
	if m.bindings == nil {
		return m.defaultThreadID
	}

	threadID, err := m.bindings.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			m.logger.Warn("thread binding lookup failed, using default thread",
				"session_id", id,
				"error", err,
			)
		}
		return m.defaultThreadID
	}
	return threadID
}

// evictLRU must be called with m.mu held.
func (m *Manager) evictLRU() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		at := s.idleSince()
		if oldestID == "" || at.Before(oldest) {
			oldestID = id
			oldest = at
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
	}
}
