package assistant

import (
	models "threadkeeper/internal/domain/models/assistant"
)

// ConversationCache is the ordered local mirror of a conversation.
type ConversationCache interface {
	Append(role models.Role, content string)
	// Replace discards every entry, optimistic ones included.
	Replace(entries []models.Entry)
	// Entries returns a snapshot in chronological order.
	Entries() []models.Entry
	Len() int
}

// Session is the per-user conversation context every chat call runs against.
type Session interface {
	ID() string
	AssistantID() string
	ThreadID() string
	Cache() ConversationCache

	// Synced reports whether history was loaded since the last invalidation.
	Synced() bool
	MarkSynced()
	// Invalidate clears the cache and forces the next access to resynchronize.
	Invalidate()
	// SwitchThread points the session at a new, empty conversation.
	SwitchThread(threadID string)

	// LockTurn serializes turns on the session.
	LockTurn()
	UnlockTurn()
}
