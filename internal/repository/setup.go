// Package repository wires lease and binding storage for the configured environment.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"threadkeeper/internal/config"
	repo "threadkeeper/internal/domain/repositories/assistant"
	"threadkeeper/internal/repository/memory"
	"threadkeeper/internal/repository/postgres"
	postgresAssistant "threadkeeper/internal/repository/postgres/assistant"
)

// Stores are the persistence dependencies of the chat service.
type Stores struct {
	Locks    repo.ConversationLockRepository
	Bindings repo.ThreadBindingRepository // nil without a database
	close    func()
}

// Close releases the database pool, if any.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Setup uses Postgres when DATABASE_URL is set and process-local leases otherwise.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("no DATABASE_URL: using in-memory leases, thread bindings are not persisted")
		return &Stores{Locks: memory.NewLeaseRepository()}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	if err := postgres.EnsureSchema(ctx, repoConfig); err != nil {
		pool.Close()
		return nil, fmt.Errorf("prepare database: %w", err)
	}

	logger.Info("database connected", "table_prefix", cfg.TablePrefix)

	return &Stores{
		Locks:    postgresAssistant.NewLeaseRepository(repoConfig),
		Bindings: postgresAssistant.NewThreadBindingRepository(repoConfig),
		close:    pool.Close,
	}, nil
}
