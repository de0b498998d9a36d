package session

import (
	"sync"

	models "threadkeeper/internal/domain/models/assistant"
)

// Cache is the ordered in-memory mirror of a conversation: synchronized history
// followed by optimistically appended turns that the backend has not confirmed yet.
//
// Callers only append during a turn. Replace is reserved for the history reload
// path and discards every optimistic entry.
type Cache struct {
	mu      sync.RWMutex
	entries []models.Entry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Append adds one entry at the tail. Identical consecutive entries are kept:
// sending the same text twice is legitimate.
func (c *Cache) Append(role models.Role, content string) {
	c.mu.Lock()
	c.entries = append(c.entries, models.Entry{Role: role, Content: content})
	c.mu.Unlock()
}

// Replace swaps the whole content for entries.
func (c *Cache) Replace(entries []models.Entry) {
	next := make([]models.Entry, len(entries))
	copy(next, entries)

	c.mu.Lock()
	c.entries = next
	c.mu.Unlock()
}

// Entries returns a snapshot copy in order.
func (c *Cache) Entries() []models.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
