package assistant

import "context"

// ThreadBindingRepository remembers which thread a session key talks to, so a
// reload or relaunch reuses the same conversation instead of creating a new one.
type ThreadBindingRepository interface {
	// Get returns the bound thread ID. Returns domain.ErrNotFound when unbound.
	Get(ctx context.Context, key string) (string, error)

	// Put binds key to threadID, replacing any previous binding.
	Put(ctx context.Context, key, threadID string) error
}
