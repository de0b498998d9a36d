package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	ConversationLeases string
	ThreadBindings     string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		ConversationLeases: fmt.Sprintf("%sconversation_leases", prefix),
		ThreadBindings:     fmt.Sprintf("%sthread_bindings", prefix),
	}
}

// CreateConnectionPool opens a small pgx pool and pings it.
//
// Port 6543 is the transaction pooler of hosted Postgres setups (PgBouncer), which
// rejects prepared statements; there the pool switches to QueryExecModeCacheDescribe
// unless the connection string already set default_query_exec_mode.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// leases and bindings are a handful of single-row statements per turn
	config.MaxConns = 8
	config.MinConns = 1

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the tables this service owns when they are missing.
func EnsureSchema(ctx context.Context, cfg *RepositoryConfig) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				thread_id  TEXT PRIMARY KEY,
				owner      TEXT NOT NULL,
				expires_at TIMESTAMPTZ NOT NULL
			)`, cfg.Tables.ConversationLeases),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				session_key TEXT PRIMARY KEY,
				thread_id   TEXT NOT NULL,
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, cfg.Tables.ThreadBindings),
	}

	for _, stmt := range statements {
		if _, err := cfg.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	cfg.Logger.Debug("schema ensured",
		"leases", cfg.Tables.ConversationLeases,
		"bindings", cfg.Tables.ThreadBindings,
	)
	return nil
}
