package versioning

import (
	"context"

	"inkwell/internal/domain/models/versioning"
)

// MergeHistoryRepository is the append-only audit trail of engine operations.
type MergeHistoryRepository interface {
	// Append writes a new history entry
	Append(ctx context.Context, entry *versioning.MergeHistoryEntry) error

	// ListByBranch lists entries targeting a branch, newest first
	ListByBranch(ctx context.Context, branchID string, limit int) ([]versioning.MergeHistoryEntry, error)

	// ListByItem lists entries for one content item, newest first
	ListByItem(ctx context.Context, contentItemID string, limit int) ([]versioning.MergeHistoryEntry, error)
}
