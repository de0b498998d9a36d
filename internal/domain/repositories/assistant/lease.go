package assistant

import (
	"context"
	"time"
)

// Lease is a held claim on a thread for the duration of one turn.
type Lease struct {
	ThreadID  string
	Owner     string
	ExpiresAt time.Time
}

// ConversationLockRepository serializes turn submission per thread across sessions.
// An expired lease is free to be taken by anyone.
type ConversationLockRepository interface {
	// Acquire claims the thread for owner until now+ttl.
	// Returns a *domain.ConflictError when another owner holds an unexpired lease.
	Acquire(ctx context.Context, threadID, owner string, ttl time.Duration) (*Lease, error)

	// Release drops the lease if owner still holds it. Releasing a lease that
	// expired or was taken over is a no-op.
	Release(ctx context.Context, threadID, owner string) error
}
