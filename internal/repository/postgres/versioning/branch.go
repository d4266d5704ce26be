package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	versioningRepo "inkwell/internal/domain/repositories/versioning"

	"inkwell/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBranchRepository implements the BranchRepository interface
type PostgresBranchRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(config *postgres.RepositoryConfig) versioningRepo.BranchRepository {
	return &PostgresBranchRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const branchColumns = `id, project_id, name, state, is_trunk, base_branch_id, base_marker, created_at, updated_at`

// Create creates a new branch
func (r *PostgresBranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, name, state, is_trunk, base_branch_id, base_marker, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		branch.ID,
		branch.ProjectID,
		branch.Name,
		branch.State,
		branch.IsTrunk,
		branch.BaseBranchID,
		branch.BaseMarker,
		branch.CreatedAt,
		branch.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("branch '%s' already exists", branch.Name),
				ResourceType: "branch",
				ResourceID:   branch.ID,
			}
		}
		return fmt.Errorf("create branch: %w", err)
	}

	return nil
}

// GetByID retrieves a branch by ID
func (r *PostgresBranchRepository) GetByID(ctx context.Context, id string) (*models.Branch, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, branchColumns, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	branch, err := scanBranch(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("branch %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}

	return branch, nil
}

// GetTrunk retrieves the trunk branch for a project
func (r *PostgresBranchRepository) GetTrunk(ctx context.Context, projectID string) (*models.Branch, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE project_id = $1 AND is_trunk
	`, branchColumns, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	branch, err := scanBranch(executor.QueryRow(ctx, query, projectID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("trunk for project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get trunk: %w", err)
	}

	return branch, nil
}

// UpdateBaseMarker advances the branch's opaque base marker
func (r *PostgresBranchRepository) UpdateBaseMarker(ctx context.Context, id, marker string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET base_marker = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, marker, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update base marker: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("branch %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetState transitions the branch lifecycle state
func (r *PostgresBranchRepository) SetState(ctx context.Context, id string, state models.BranchState) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET state = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, state, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set branch state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("branch %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBranch(row rowScanner) (*models.Branch, error) {
	var branch models.Branch
	err := row.Scan(
		&branch.ID,
		&branch.ProjectID,
		&branch.Name,
		&branch.State,
		&branch.IsTrunk,
		&branch.BaseBranchID,
		&branch.BaseMarker,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &branch, nil
}
