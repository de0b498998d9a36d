package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"threadkeeper/internal/domain"
	repo "threadkeeper/internal/domain/repositories/assistant"
	"threadkeeper/internal/repository/postgres"
)

// PostgresThreadBindingRepository persists session key -> thread ID.
type PostgresThreadBindingRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewThreadBindingRepository creates a new PostgresThreadBindingRepository
func NewThreadBindingRepository(config *postgres.RepositoryConfig) repo.ThreadBindingRepository {
	return &PostgresThreadBindingRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get returns the thread bound to key
func (r *PostgresThreadBindingRepository) Get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf(`
		SELECT thread_id FROM %s
		WHERE session_key = $1
	`, r.tables.ThreadBindings)

	var threadID string
	if err := r.pool.QueryRow(ctx, query, key).Scan(&threadID); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return "", fmt.Errorf("thread binding %s: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get thread binding: %w", err)
	}
	return threadID, nil
}

// Put binds key to threadID
func (r *PostgresThreadBindingRepository) Put(ctx context.Context, key, threadID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (session_key, thread_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_key) DO UPDATE
			SET thread_id = EXCLUDED.thread_id, updated_at = EXCLUDED.updated_at
	`, r.tables.ThreadBindings)

	if _, err := r.pool.Exec(ctx, query, key, threadID); err != nil {
		if postgres.IsPgUndefinedTableError(err) {
			return fmt.Errorf("put thread binding: table %s missing, run with schema setup: %w", r.tables.ThreadBindings, err)
		}
		return fmt.Errorf("put thread binding: %w", err)
	}

	r.logger.Debug("thread binding stored", "session_key", key, "thread_id", threadID)
	return nil
}
