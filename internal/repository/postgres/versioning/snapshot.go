package versioning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	versioningRepo "inkwell/internal/domain/repositories/versioning"

	"inkwell/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSnapshotRepository implements the SnapshotRepository interface
type PostgresSnapshotRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(config *postgres.RepositoryConfig) versioningRepo.SnapshotRepository {
	return &PostgresSnapshotRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Save creates the branch's snapshot, or replaces it if one exists. The id is
// replaced too: the branch's base marker records the id of the latest save.
// One snapshot per branch is a schema-level invariant (UNIQUE branch_id).
func (r *PostgresSnapshotRepository) Save(ctx context.Context, snapshot *models.BranchSnapshot) error {
	entries, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return fmt.Errorf("encode snapshot entries: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, branch_id, entries, captured_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (branch_id) DO UPDATE
		SET id = EXCLUDED.id, entries = EXCLUDED.entries, captured_at = EXCLUDED.captured_at
	`, r.tables.BranchSnapshots)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, snapshot.ID, snapshot.BranchID, entries, snapshot.CapturedAt); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// GetByBranch retrieves the branch's snapshot
func (r *PostgresSnapshotRepository) GetByBranch(ctx context.Context, branchID string) (*models.BranchSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, branch_id, entries, captured_at
		FROM %s
		WHERE branch_id = $1
	`, r.tables.BranchSnapshots)

	var snapshot models.BranchSnapshot
	var entries []byte

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, branchID).Scan(
		&snapshot.ID,
		&snapshot.BranchID,
		&entries,
		&snapshot.CapturedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("snapshot for branch %s: %w", branchID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	if err := json.Unmarshal(entries, &snapshot.Entries); err != nil {
		return nil, fmt.Errorf("decode snapshot entries: %w", err)
	}
	if snapshot.Entries == nil {
		snapshot.Entries = map[string]models.SnapshotEntry{}
	}

	return &snapshot, nil
}
