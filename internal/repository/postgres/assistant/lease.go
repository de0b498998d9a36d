package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"threadkeeper/internal/domain"
	repo "threadkeeper/internal/domain/repositories/assistant"
	"threadkeeper/internal/repository/postgres"
)

// PostgresLeaseRepository implements ConversationLockRepository with one row per thread.
// Acquisition is a single conditional upsert, so concurrent callers across
// processes cannot both win.
type PostgresLeaseRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewLeaseRepository creates a new PostgresLeaseRepository
func NewLeaseRepository(config *postgres.RepositoryConfig) repo.ConversationLockRepository {
	return &PostgresLeaseRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Acquire claims the thread when it is free, expired, or already held by owner.
func (r *PostgresLeaseRepository) Acquire(ctx context.Context, threadID, owner string, ttl time.Duration) (*repo.Lease, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (thread_id, owner, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		ON CONFLICT (thread_id) DO UPDATE
			SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
			WHERE %[1]s.owner = EXCLUDED.owner OR %[1]s.expires_at <= now()
		RETURNING thread_id, owner, expires_at
	`, r.tables.ConversationLeases)

	var lease repo.Lease
	err := r.pool.QueryRow(ctx, query, threadID, owner, ttl.Seconds()).Scan(
		&lease.ThreadID,
		&lease.Owner,
		&lease.ExpiresAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			// the conditional update matched nothing: someone else holds it
			r.logger.Debug("lease busy", "thread_id", threadID, "owner", owner)
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("thread %s is busy with another turn", threadID),
				ResourceType: "conversation_lease",
				ResourceID:   threadID,
			}
		}
		return nil, fmt.Errorf("acquire lease: %w", err)
	}

	return &lease, nil
}

// Release deletes the lease row if owner still holds it.
func (r *PostgresLeaseRepository) Release(ctx context.Context, threadID, owner string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE thread_id = $1 AND owner = $2
	`, r.tables.ConversationLeases)

	if _, err := r.pool.Exec(ctx, query, threadID, owner); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
