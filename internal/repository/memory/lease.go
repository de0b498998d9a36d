package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"threadkeeper/internal/domain"
	repo "threadkeeper/internal/domain/repositories/assistant"
)

// LeaseRepository is a process-local ConversationLockRepository.
// It serializes sessions of one process only; use the postgres repository
// when several processes share threads.
type LeaseRepository struct {
	mu     sync.Mutex
	leases map[string]repo.Lease
	now    func() time.Time
}

// NewLeaseRepository creates an empty lease table.
func NewLeaseRepository() *LeaseRepository {
	return &LeaseRepository{
		leases: make(map[string]repo.Lease),
		now:    time.Now,
	}
}

// Acquire claims threadID for owner. The same owner may renew its own lease.
func (r *LeaseRepository) Acquire(ctx context.Context, threadID, owner string, ttl time.Duration) (*repo.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if held, ok := r.leases[threadID]; ok && held.Owner != owner && held.ExpiresAt.After(now) {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("thread %s is busy with another turn", threadID),
			ResourceType: "conversation_lease",
			ResourceID:   threadID,
		}
	}

	lease := repo.Lease{ThreadID: threadID, Owner: owner, ExpiresAt: now.Add(ttl)}
	r.leases[threadID] = lease
	return &lease, nil
}

// Release drops the lease when owner still holds it.
func (r *LeaseRepository) Release(ctx context.Context, threadID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.leases[threadID]; ok && held.Owner == owner {
		delete(r.leases, threadID)
	}
	return nil
}
