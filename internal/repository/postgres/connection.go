package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"inkwell/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Branches        string
	ContentItems    string
	ContentVersions string
	BranchSnapshots string
	MergeHistory    string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Branches:        fmt.Sprintf("%sbranches", prefix),
		ContentItems:    fmt.Sprintf("%scontent_items", prefix),
		ContentVersions: fmt.Sprintf("%scontent_versions", prefix),
		BranchSnapshots: fmt.Sprintf("%sbranch_snapshots", prefix),
		MergeHistory:    fmt.Sprintf("%smerge_history", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// Our use of fmt.Sprintf for dynamic table prefixes (dev_, test_, prod_) is
// safe with prepared statements because the SQL string is interpolated BEFORE
// being sent to the database; each environment gets its own statements.
//
// Port 6543 (transaction-pooling PgBouncer) does not support prepared
// statements, so it is auto-switched to QueryExecModeCacheDescribe, which
// caches statement descriptions only and still uses the extended protocol
// (required for proper JSONB encoding of the snapshot/conflict payloads).
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 5

	// If user explicitly set default_query_exec_mode in the connection
	// string, that takes precedence
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
// This enables repositories to automatically participate in transactions when they exist.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	// Check if there's a transaction in the context
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	// No transaction, use the pool
	return pool
}
