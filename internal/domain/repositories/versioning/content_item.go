package versioning

import (
	"context"

	"inkwell/internal/domain/models/versioning"
)

// ContentItemRepository defines data access operations for content items
type ContentItemRepository interface {
	// Create creates a new content item
	Create(ctx context.Context, item *versioning.ContentItem) error

	// GetByID retrieves a content item by ID
	GetByID(ctx context.Context, id string) (*versioning.ContentItem, error)

	// GetBySlug retrieves a non-archived item by (branch, slug)
	GetBySlug(ctx context.Context, branchID, slug string) (*versioning.ContentItem, error)

	// ListByBranch lists all non-archived items in a branch
	ListByBranch(ctx context.Context, branchID string) ([]versioning.ContentItem, error)

	// ListPublished lists all published, non-archived items in a branch
	ListPublished(ctx context.Context, branchID string) ([]versioning.ContentItem, error)

	// ListConflicted lists all items in conflict state in a branch
	ListConflicted(ctx context.Context, branchID string) ([]versioning.ContentItem, error)

	// Update persists the item's mutable fields (current version, merge
	// state, conflict data, source/base links)
	Update(ctx context.Context, item *versioning.ContentItem) error

	// SetMergeState updates merge state and conflict payload in one write
	SetMergeState(ctx context.Context, id string, state versioning.MergeState, conflict *versioning.ConflictRecord) error

	// Archive soft-archives an item
	Archive(ctx context.Context, id string) error
}
