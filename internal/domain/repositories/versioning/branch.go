package versioning

import (
	"context"

	"inkwell/internal/domain/models/versioning"
)

// BranchRepository is the engine's view of the branch lifecycle manager's
// data. The engine reads state and base markers; it never drives the
// review/approval/publication flow.
type BranchRepository interface {
	// Create creates a new branch
	Create(ctx context.Context, branch *versioning.Branch) error

	// GetByID retrieves a branch by ID
	GetByID(ctx context.Context, id string) (*versioning.Branch, error)

	// GetTrunk retrieves the trunk branch for a project
	GetTrunk(ctx context.Context, projectID string) (*versioning.Branch, error)

	// UpdateBaseMarker advances the branch's opaque base marker after a
	// successful rebase
	UpdateBaseMarker(ctx context.Context, id, marker string) error

	// SetState transitions the branch lifecycle state
	SetState(ctx context.Context, id string, state versioning.BranchState) error
}
