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

// PostgresContentVersionRepository implements the ContentVersionRepository
// interface. Insert and read only: the version ledger is append-only.
type PostgresContentVersionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewContentVersionRepository creates a new content version repository
func NewContentVersionRepository(config *postgres.RepositoryConfig) versioningRepo.ContentVersionRepository {
	return &PostgresContentVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const versionColumns = `id, content_item_id, body, format, metadata, author_id, authorship,
		byte_size, checksum, parent_version_id, reverted_from_id, change_description, created_at`

// Create appends a new immutable version
func (r *PostgresContentVersionRepository) Create(ctx context.Context, version *models.ContentVersion) error {
	metadata, err := json.Marshal(version.Metadata)
	if err != nil {
		return fmt.Errorf("encode version metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content_item_id, body, format, metadata, author_id, authorship,
			byte_size, checksum, parent_version_id, reverted_from_id, change_description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.tables.ContentVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		version.ID,
		version.ContentItemID,
		version.Body,
		version.Format,
		metadata,
		version.AuthorID,
		version.Authorship,
		version.ByteSize,
		version.Checksum,
		version.ParentVersionID,
		version.RevertedFromID,
		version.ChangeDescription,
		version.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("create content version: %w", err)
	}

	return nil
}

// GetByID retrieves a version by ID
func (r *PostgresContentVersionRepository) GetByID(ctx context.Context, id string) (*models.ContentVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, versionColumns, r.tables.ContentVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	version, err := scanVersion(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("content version %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get content version: %w", err)
	}

	return version, nil
}

// ListByItem lists an item's version chain, newest first
func (r *PostgresContentVersionRepository) ListByItem(ctx context.Context, contentItemID string, limit int) ([]models.ContentVersion, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE content_item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, versionColumns, r.tables.ContentVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, contentItemID, limit)
	if err != nil {
		return nil, fmt.Errorf("list content versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ContentVersion
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content version: %w", err)
		}
		versions = append(versions, *version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content versions: %w", err)
	}

	// Return empty slice instead of nil
	if versions == nil {
		versions = []models.ContentVersion{}
	}

	return versions, nil
}

func scanVersion(row rowScanner) (*models.ContentVersion, error) {
	var version models.ContentVersion
	var metadata []byte

	err := row.Scan(
		&version.ID,
		&version.ContentItemID,
		&version.Body,
		&version.Format,
		&metadata,
		&version.AuthorID,
		&version.Authorship,
		&version.ByteSize,
		&version.Checksum,
		&version.ParentVersionID,
		&version.RevertedFromID,
		&version.ChangeDescription,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &version.Metadata); err != nil {
			return nil, fmt.Errorf("decode version metadata: %w", err)
		}
	}

	return &version, nil
}
