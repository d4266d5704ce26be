package versioning

import (
	"context"
	"fmt"
	"log/slog"

	models "inkwell/internal/domain/models/versioning"
	versioningRepo "inkwell/internal/domain/repositories/versioning"

	"inkwell/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMergeHistoryRepository implements the MergeHistoryRepository
// interface. Append and read only.
type PostgresMergeHistoryRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMergeHistoryRepository creates a new merge history repository
func NewMergeHistoryRepository(config *postgres.RepositoryConfig) versioningRepo.MergeHistoryRepository {
	return &PostgresMergeHistoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const historyColumns = `id, operation, source_branch_id, target_branch_id, content_item_id,
		base_version_id, source_version_id, result_version_id, had_conflict, resolution, actor, created_at`

// Append writes a new history entry
func (r *PostgresMergeHistoryRepository) Append(ctx context.Context, entry *models.MergeHistoryEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, operation, source_branch_id, target_branch_id, content_item_id,
			base_version_id, source_version_id, result_version_id, had_conflict, resolution, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.tables.MergeHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		entry.ID,
		entry.Operation,
		entry.SourceBranchID,
		entry.TargetBranchID,
		entry.ContentItemID,
		entry.BaseVersionID,
		entry.SourceVersionID,
		entry.ResultVersionID,
		entry.HadConflict,
		entry.Resolution,
		entry.Actor,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("append merge history: %w", err)
	}

	return nil
}

// ListByBranch lists entries targeting a branch, newest first
func (r *PostgresMergeHistoryRepository) ListByBranch(ctx context.Context, branchID string, limit int) ([]models.MergeHistoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE target_branch_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, historyColumns, r.tables.MergeHistory)

	return r.listEntries(ctx, query, branchID, normalizeLimit(limit))
}

// ListByItem lists entries for one content item, newest first
func (r *PostgresMergeHistoryRepository) ListByItem(ctx context.Context, contentItemID string, limit int) ([]models.MergeHistoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE content_item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, historyColumns, r.tables.MergeHistory)

	return r.listEntries(ctx, query, contentItemID, normalizeLimit(limit))
}

func (r *PostgresMergeHistoryRepository) listEntries(ctx context.Context, query string, args ...interface{}) ([]models.MergeHistoryEntry, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list merge history: %w", err)
	}
	defer rows.Close()

	var entries []models.MergeHistoryEntry
	for rows.Next() {
		var entry models.MergeHistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.Operation,
			&entry.SourceBranchID,
			&entry.TargetBranchID,
			&entry.ContentItemID,
			&entry.BaseVersionID,
			&entry.SourceVersionID,
			&entry.ResultVersionID,
			&entry.HadConflict,
			&entry.Resolution,
			&entry.Actor,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan merge history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merge history: %w", err)
	}

	// Return empty slice instead of nil
	if entries == nil {
		entries = []models.MergeHistoryEntry{}
	}

	return entries, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
