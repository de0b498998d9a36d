package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"threadkeeper/internal/domain"
)

func TestLeaseRepository(t *testing.T) {
	ctx := context.Background()
	ttl := time.Minute

	t.Run("second owner conflicts", func(t *testing.T) {
		r := NewLeaseRepository()
		if _, err := r.Acquire(ctx, "thread_1", "a", ttl); err != nil {
			t.Fatalf("acquire: %v", err)
		}
		_, err := r.Acquire(ctx, "thread_1", "b", ttl)
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if conflict.ResourceID != "thread_1" || !errors.Is(err, domain.ErrConflict) {
			t.Errorf("conflict = %+v", conflict)
		}
	})

	t.Run("owner renews", func(t *testing.T) {
		r := NewLeaseRepository()
		first, _ := r.Acquire(ctx, "thread_1", "a", ttl)
		second, err := r.Acquire(ctx, "thread_1", "a", 2*ttl)
		if err != nil {
			t.Fatalf("renew: %v", err)
		}
		if !second.ExpiresAt.After(first.ExpiresAt) {
			t.Error("renewal did not extend the lease")
		}
	})

	t.Run("expired lease is taken over", func(t *testing.T) {
		r := NewLeaseRepository()
		now := time.Now()
		r.now = func() time.Time { return now }
		if _, err := r.Acquire(ctx, "thread_1", "a", ttl); err != nil {
			t.Fatal(err)
		}
		now = now.Add(ttl + time.Second)
		lease, err := r.Acquire(ctx, "thread_1", "b", ttl)
		if err != nil {
			t.Fatalf("takeover: %v", err)
		}
		if lease.Owner != "b" {
			t.Errorf("owner = %s", lease.Owner)
		}
	})

	t.Run("release by other owner is a no-op", func(t *testing.T) {
		r := NewLeaseRepository()
		r.Acquire(ctx, "thread_1", "a", ttl)
		if err := r.Release(ctx, "thread_1", "b"); err != nil {
			t.Fatal(err)
		}
		if _, err := r.Acquire(ctx, "thread_1", "b", ttl); err == nil {
			t.Error("lease was released by a non-owner")
		}
		r.Release(ctx, "thread_1", "a")
		if _, err := r.Acquire(ctx, "thread_1", "b", ttl); err != nil {
			t.Errorf("acquire after release: %v", err)
		}
	})

	t.Run("threads are independent", func(t *testing.T) {
		r := NewLeaseRepository()
		r.Acquire(ctx, "thread_1", "a", ttl)
		if _, err := r.Acquire(ctx, "thread_2", "b", ttl); err != nil {
			t.Errorf("unrelated thread blocked: %v", err)
		}
	})
}
