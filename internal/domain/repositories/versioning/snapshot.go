package versioning

import (
	"context"

	"inkwell/internal/domain/models/versioning"
)

// SnapshotRepository persists the one-per-branch merge base.
type SnapshotRepository interface {
	// Save creates the branch's snapshot, or replaces it if one exists
	Save(ctx context.Context, snapshot *versioning.BranchSnapshot) error

	// GetByBranch retrieves the branch's snapshot. Returns a NotFound error
	// for the trunk, which never has one.
	GetByBranch(ctx context.Context, branchID string) (*versioning.BranchSnapshot, error)
}
