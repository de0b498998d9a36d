package session

import (
	"sync"
	"time"

	svc "threadkeeper/internal/domain/services/assistant"
)

// Session is the explicit per-user conversation context handed to every chat call.
//
// Lifecycle: created on first interaction by Manager.GetOrCreate, removed by
// Manager.Remove or inactivity cleanup. Invalidate forces the next history access
// to resynchronize; SwitchThread supersedes the conversation after a reset.
//
// Turns on one session are serialized with LockTurn/UnlockTurn, which is what
// makes "turn N+1 waits for turn N" hold even when requests arrive concurrently.
type Session struct {
	id          string
	assistantID string

	turnMu sync.Mutex

	mu           sync.Mutex // protects fields below
	threadID     string
	synced       bool
	lastActivity time.Time

	cache *Cache
}

var _ svc.Session = (*Session)(nil)

// New creates a session bound to threadID.
func New(id, threadID, assistantID string) *Session {
	return &Session{
		id:           id,
		assistantID:  assistantID,
		threadID:     threadID,
		lastActivity: time.Now(),
		cache:        NewCache(),
	}
}

// ID returns the session key.
func (s *Session) ID() string { return s.id }

// AssistantID returns the assistant runs are created with.
func (s *Session) AssistantID() string { return s.assistantID }

// ThreadID returns the active conversation.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// Cache returns the local conversation cache.
func (s *Session) Cache() svc.ConversationCache { return s.cache }

// Synced reports whether history has been loaded since the last invalidation.
func (s *Session) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// MarkSynced records that the cache mirrors the remote history.
func (s *Session) MarkSynced() {
	s.mu.Lock()
	s.synced = true
	s.mu.Unlock()
}

// Invalidate drops the cached conversation so the next access reloads it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.synced = false
	s.mu.Unlock()
	s.cache.Replace(nil)
}

// SwitchThread points the session at a new, empty conversation.
// The old thread is abandoned locally, not deleted remotely.
func (s *Session) SwitchThread(threadID string) {
	s.mu.Lock()
	s.threadID = threadID
	s.synced = true // a fresh thread has no history to load
	s.mu.Unlock()
	s.cache.Replace(nil)
}

// LockTurn blocks until no other turn runs on this session.
func (s *Session) LockTurn() { s.turnMu.Lock() }

// UnlockTurn releases the turn lock.
func (s *Session) UnlockTurn() { s.turnMu.Unlock() }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}
