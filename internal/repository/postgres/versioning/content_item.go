package versioning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	versioningRepo "inkwell/internal/domain/repositories/versioning"

	"inkwell/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresContentItemRepository implements the ContentItemRepository interface
type PostgresContentItemRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewContentItemRepository creates a new content item repository
func NewContentItemRepository(config *postgres.RepositoryConfig) versioningRepo.ContentItemRepository {
	return &PostgresContentItemRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const itemColumns = `id, branch_id, slug, content_type, current_version_id, published_version_id,
		source_item_id, base_version_id, merge_state, conflict_data, archived, archived_at,
		created_at, updated_at`

// Create creates a new content item
func (r *PostgresContentItemRepository) Create(ctx context.Context, item *models.ContentItem) error {
	conflictData, err := marshalConflict(item.ConflictData)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, branch_id, slug, content_type, current_version_id, published_version_id,
			source_item_id, base_version_id, merge_state, conflict_data, archived, archived_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.tables.ContentItems)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		item.ID,
		item.BranchID,
		item.Slug,
		item.ContentType,
		nullableID(item.CurrentVersionID),
		item.PublishedVersionID,
		item.SourceItemID,
		item.BaseVersionID,
		item.MergeState,
		conflictData,
		item.Archived,
		item.ArchivedAt,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			// Surface the existing item's ID so callers can report it
			existingID, queryErr := r.getExistingItemID(ctx, item.BranchID, item.Slug)
			if queryErr != nil {
				return fmt.Errorf("content item '%s' already exists in this branch: %w", item.Slug, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("content item '%s' already exists in this branch", item.Slug),
				ResourceType: "content_item",
				ResourceID:   existingID,
			}
		}
		return fmt.Errorf("create content item: %w", err)
	}

	return nil
}

// GetByID retrieves a content item by ID
func (r *PostgresContentItemRepository) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, itemColumns, r.tables.ContentItems)

	executor := postgres.GetExecutor(ctx, r.pool)
	item, err := scanItem(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("content item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get content item: %w", err)
	}

	return item, nil
}

// GetBySlug retrieves a non-archived item by (branch, slug)
func (r *PostgresContentItemRepository) GetBySlug(ctx context.Context, branchID, slug string) (*models.ContentItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE branch_id = $1 AND slug = $2 AND NOT archived
	`, itemColumns, r.tables.ContentItems)

	executor := postgres.GetExecutor(ctx, r.pool)
	item, err := scanItem(executor.QueryRow(ctx, query, branchID, slug))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("content item '%s' in branch %s: %w", slug, branchID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get content item by slug: %w", err)
	}

	return item, nil
}

// ListByBranch lists all non-archived items in a branch
func (r *PostgresContentItemRepository) ListByBranch(ctx context.Context, branchID string) ([]models.ContentItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE branch_id = $1 AND NOT archived
		ORDER BY slug ASC
	`, itemColumns, r.tables.ContentItems)

	return r.listItems(ctx, query, branchID)
}

// ListPublished lists all published, non-archived items in a branch
func (r *PostgresContentItemRepository) ListPublished(ctx context.Context, branchID string) ([]models.ContentItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE branch_id = $1 AND NOT archived AND published_version_id IS NOT NULL
		ORDER BY slug ASC
	`, itemColumns, r.tables.ContentItems)

	return r.listItems(ctx, query, branchID)
}

// ListConflicted lists all items in conflict state in a branch
func (r *PostgresContentItemRepository) ListConflicted(ctx context.Context, branchID string) ([]models.ContentItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE branch_id = $1 AND NOT archived AND merge_state = $2
		ORDER BY slug ASC
	`, itemColumns, r.tables.ContentItems)

	return r.listItems(ctx, query, branchID, models.MergeStateConflict)
}

// Update persists the item's mutable fields
func (r *PostgresContentItemRepository) Update(ctx context.Context, item *models.ContentItem) error {
	conflictData, err := marshalConflict(item.ConflictData)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET slug = $1, content_type = $2, current_version_id = $3, published_version_id = $4,
			source_item_id = $5, base_version_id = $6, merge_state = $7, conflict_data = $8,
			archived = $9, archived_at = $10, updated_at = $11
		WHERE id = $12
	`, r.tables.ContentItems)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		item.Slug,
		item.ContentType,
		nullableID(item.CurrentVersionID),
		item.PublishedVersionID,
		item.SourceItemID,
		item.BaseVersionID,
		item.MergeState,
		conflictData,
		item.Archived,
		item.ArchivedAt,
		time.Now(),
		item.ID,
	)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("content item '%s' already exists in this branch", item.Slug),
				ResourceType: "content_item",
				ResourceID:   item.ID,
			}
		}
		return fmt.Errorf("update content item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("content item %s: %w", item.ID, domain.ErrNotFound)
	}

	return nil
}

// SetMergeState updates merge state and conflict payload in one write
func (r *PostgresContentItemRepository) SetMergeState(ctx context.Context, id string, state models.MergeState, conflict *models.ConflictRecord) error {
	conflictData, err := marshalConflict(conflict)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET merge_state = $1, conflict_data = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.ContentItems)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, state, conflictData, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set merge state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("content item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Archive soft-archives an item
func (r *PostgresContentItemRepository) Archive(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET archived = TRUE, archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND NOT archived
	`, r.tables.ContentItems)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("archive content item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("content item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresContentItemRepository) listItems(ctx context.Context, query string, args ...interface{}) ([]models.ContentItem, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content items: %w", err)
	}

	// Return empty slice instead of nil
	if items == nil {
		items = []models.ContentItem{}
	}

	return items, nil
}

// getExistingItemID queries for an existing item by unique constraint fields
func (r *PostgresContentItemRepository) getExistingItemID(ctx context.Context, branchID, slug string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE branch_id = $1 AND slug = $2 AND NOT archived
	`, r.tables.ContentItems)

	var id string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, branchID, slug).Scan(&id); err != nil {
		return "", fmt.Errorf("get existing content item ID: %w", err)
	}

	return id, nil
}

func scanItem(row rowScanner) (*models.ContentItem, error) {
	var item models.ContentItem
	var currentVersionID *string
	var conflictData []byte

	err := row.Scan(
		&item.ID,
		&item.BranchID,
		&item.Slug,
		&item.ContentType,
		&currentVersionID,
		&item.PublishedVersionID,
		&item.SourceItemID,
		&item.BaseVersionID,
		&item.MergeState,
		&conflictData,
		&item.Archived,
		&item.ArchivedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentVersionID != nil {
		item.CurrentVersionID = *currentVersionID
	}

	if len(conflictData) > 0 {
		var record models.ConflictRecord
		if err := json.Unmarshal(conflictData, &record); err != nil {
			return nil, fmt.Errorf("decode conflict data: %w", err)
		}
		item.ConflictData = &record
	}

	return &item, nil
}

// marshalConflict encodes the conflict payload for JSONB storage; nil stays
// NULL so "no conflict" and "empty record" remain distinguishable.
func marshalConflict(record *models.ConflictRecord) ([]byte, error) {
	if record == nil {
		return nil, nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode conflict data: %w", err)
	}
	return data, nil
}

// nullableID maps an empty string ID to NULL for optional UUID columns.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
