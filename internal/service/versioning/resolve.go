package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"inkwell/internal/config"
	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	"inkwell/internal/domain/repositories"
	versioningRepo "inkwell/internal/domain/repositories/versioning"
	"inkwell/internal/domain/services"
)

// resolutionService implements the ConflictResolutionService interface
type resolutionService struct {
	itemRepo    versioningRepo.ContentItemRepository
	versionRepo versioningRepo.ContentVersionRepository
	historyRepo versioningRepo.MergeHistoryRepository
	txManager   repositories.TransactionManager
	sessions    *RebaseSessionStore
	logger      *slog.Logger
}

// NewConflictResolutionService creates a new conflict resolution service
func NewConflictResolutionService(
	itemRepo versioningRepo.ContentItemRepository,
	versionRepo versioningRepo.ContentVersionRepository,
	historyRepo versioningRepo.MergeHistoryRepository,
	txManager repositories.TransactionManager,
	sessions *RebaseSessionStore,
	logger *slog.Logger,
) services.ConflictResolutionService {
	return &resolutionService{
		itemRepo:    itemRepo,
		versionRepo: versionRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		sessions:    sessions,
		logger:      logger,
	}
}

// ResolveConflict applies the chosen strategy to one conflicted item: picks
// the winning body, records it as a new version parented on the current one,
// moves the item to resolved state, and logs the decision in merge history.
func (s *resolutionService) ResolveConflict(ctx context.Context, req *services.ResolveRequest) (*services.ResolveResult, error) {
	if err := validateResolveRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	item, err := s.itemRepo.GetByID(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}

	if item.MergeState != models.MergeStateConflict || item.ConflictData == nil {
		return nil, &domain.PreconditionError{Message: fmt.Sprintf("content item %s is not in conflict", req.ContentID)}
	}
	record := item.ConflictData

	var body string
	switch req.Resolution {
	case models.ResolutionOurs:
		body = record.OursBody
	case models.ResolutionTheirs:
		body = record.TheirsBody
	case models.ResolutionManual:
		body = *req.MergedBody
	}

	current, err := s.versionRepo.GetByID(ctx, item.CurrentVersionID)
	if err != nil {
		return nil, err
	}

	metadata := NormalizeMetadata(body, current.Metadata.Title, current.Metadata.Category, current.Metadata.Tags)
	if req.MergedMetadata != nil {
		metadata = *req.MergedMetadata
	}

	newVersionID := uuid.NewString()
	now := time.Now()
	parentID := current.ID
	resolution := req.Resolution

	description := fmt.Sprintf("Resolved merge conflict (%s)", resolution)
	if req.ChangeDescription != "" {
		description = req.ChangeDescription
	}

	newVersion := &models.ContentVersion{
		ID:                newVersionID,
		ContentItemID:     item.ID,
		Body:              body,
		Format:            current.Format,
		Metadata:          metadata,
		AuthorID:          req.Actor,
		Authorship:        models.AuthorshipHuman,
		ByteSize:          ByteSize(body),
		Checksum:          Checksum(body),
		ParentVersionID:   &parentID,
		ChangeDescription: description,
		CreatedAt:         now,
	}

	historyEntry := &models.MergeHistoryEntry{
		ID:              uuid.NewString(),
		Operation:       models.OpResolve,
		TargetBranchID:  item.BranchID,
		ContentItemID:   item.ID,
		BaseVersionID:   record.BaseVersionID,
		SourceVersionID: &record.OursVersionID,
		ResultVersionID: &newVersionID,
		HadConflict:     true,
		Resolution:      &resolution,
		Actor:           req.Actor,
		CreatedAt:       now,
	}

	item.CurrentVersionID = newVersionID
	item.MergeState = models.MergeStateResolved
	item.ConflictData = nil
	item.UpdatedAt = now

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.versionRepo.Create(txCtx, newVersion); err != nil {
			return err
		}
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return err
		}
		return s.historyRepo.Append(txCtx, historyEntry)
	})
	if err != nil {
		return nil, err
	}

	// If a rebase session is waiting on this conflict, tick it off
	s.sessions.MarkResolved(item.BranchID, item.ID)

	s.logger.Info("conflict resolved",
		"content_item_id", item.ID,
		"branch_id", item.BranchID,
		"resolution", resolution,
		"new_version_id", newVersionID,
	)

	return &services.ResolveResult{
		ContentID:    item.ID,
		NewVersionID: newVersionID,
	}, nil
}

// ResolveMultipleConflicts resolves each request in order. A sequential fold:
// earlier successes stand even when later requests fail.
func (s *resolutionService) ResolveMultipleConflicts(ctx context.Context, reqs []services.ResolveRequest) (*services.BatchResolveReport, error) {
	report := &services.BatchResolveReport{
		Resolved: []services.ResolveResult{},
		Errors:   []services.ItemError{},
	}

	for i := range reqs {
		result, err := s.ResolveConflict(ctx, &reqs[i])
		if err != nil {
			report.Errors = append(report.Errors, services.ItemError{
				ContentID: reqs[i].ContentID,
				Message:   err.Error(),
			})
			continue
		}
		report.Resolved = append(report.Resolved, *result)
	}

	return report, nil
}

func validateResolveRequest(req *services.ResolveRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ContentID, validation.Required),
		validation.Field(&req.Resolution, validation.Required, validation.In(
			models.ResolutionOurs,
			models.ResolutionTheirs,
			models.ResolutionManual,
		)),
		validation.Field(&req.MergedBody,
			validation.Required.When(req.Resolution == models.ResolutionManual).
				Error("merged_body is required for manual resolution"),
			validation.Length(0, config.MaxBodyBytes).
				Error(fmt.Sprintf("merged body exceeds %d bytes", config.MaxBodyBytes))),
		validation.Field(&req.ChangeDescription,
			validation.Length(0, config.MaxChangeDescription)),
		validation.Field(&req.Actor, validation.Required),
	)
}
