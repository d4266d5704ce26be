package versioning

import (
	"context"
	"log/slog"

	versioningRepo "inkwell/internal/domain/repositories/versioning"
	"inkwell/internal/domain/services"
)

// publishGate implements the PublishGate interface for the publish pipeline:
// any item in conflict state is a hard block on publication.
type publishGate struct {
	itemRepo versioningRepo.ContentItemRepository
	logger   *slog.Logger
}

// NewPublishGate creates a new publish gate
func NewPublishGate(itemRepo versioningRepo.ContentItemRepository, logger *slog.Logger) services.PublishGate {
	return &publishGate{itemRepo: itemRepo, logger: logger}
}

// BlockingConflicts returns the slugs of all items currently in conflict
// state on the branch.
func (g *publishGate) BlockingConflicts(ctx context.Context, branchID string) ([]string, error) {
	items, err := g.itemRepo.ListConflicted(ctx, branchID)
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(items))
	for i := range items {
		slugs = append(slugs, items[i].Slug)
	}
	return slugs, nil
}
