package versioning

import (
	"context"

	"inkwell/internal/domain/models/versioning"
)

// ContentVersionRepository is the append-only version ledger. Versions are
// inserted and read; there is deliberately no update or delete.
type ContentVersionRepository interface {
	// Create appends a new immutable version
	Create(ctx context.Context, version *versioning.ContentVersion) error

	// GetByID retrieves a version by ID
	GetByID(ctx context.Context, id string) (*versioning.ContentVersion, error)

	// ListByItem lists an item's version chain, newest first
	ListByItem(ctx context.Context, contentItemID string, limit int) ([]versioning.ContentVersion, error)
}
