package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	"inkwell/internal/domain/repositories"
	versioningRepo "inkwell/internal/domain/repositories/versioning"
	"inkwell/internal/domain/services"
)

// inheritChangeDescription is the fixed change description on every
// inherited version copy.
const inheritChangeDescription = "Inherited from source branch"

// inheritanceService implements the InheritanceService interface
type inheritanceService struct {
	branchRepo   versioningRepo.BranchRepository
	itemRepo     versioningRepo.ContentItemRepository
	versionRepo  versioningRepo.ContentVersionRepository
	snapshotRepo versioningRepo.SnapshotRepository
	historyRepo  versioningRepo.MergeHistoryRepository
	txManager    repositories.TransactionManager
	logger       *slog.Logger
}

// NewInheritanceService creates a new inheritance service
func NewInheritanceService(
	branchRepo versioningRepo.BranchRepository,
	itemRepo versioningRepo.ContentItemRepository,
	versionRepo versioningRepo.ContentVersionRepository,
	snapshotRepo versioningRepo.SnapshotRepository,
	historyRepo versioningRepo.MergeHistoryRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.InheritanceService {
	return &inheritanceService{
		branchRepo:   branchRepo,
		itemRepo:     itemRepo,
		versionRepo:  versionRepo,
		snapshotRepo: snapshotRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// Inherit copies every published, non-archived item of the source branch into
// the target branch and records the target's merge base. Single-item failures
// are collected, not fatal; the snapshot is written even when empty, because a
// missing snapshot is reserved to mean "this branch is the trunk".
func (s *inheritanceService) Inherit(ctx context.Context, req *services.InheritRequest) (*services.InheritReport, error) {
	if err := validateInheritRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	source, err := s.branchRepo.GetByID(ctx, req.SourceBranchID)
	if err != nil {
		return nil, err
	}
	target, err := s.branchRepo.GetByID(ctx, req.TargetBranchID)
	if err != nil {
		return nil, err
	}
	if target.IsTrunk {
		return nil, &domain.PreconditionError{Message: "trunk cannot inherit content"}
	}

	items, err := s.itemRepo.ListPublished(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	report := &services.InheritReport{Errors: []services.ItemError{}}
	entries := make(map[string]models.SnapshotEntry, len(items))

	for i := range items {
		item := &items[i]
		newItemID, newVersionID, checksum, err := s.inheritItem(ctx, item, source, target, req.Actor)
		if err != nil {
			s.logger.Warn("failed to inherit content item",
				"slug", item.Slug,
				"source_item_id", item.ID,
				"target_branch_id", target.ID,
				"error", err,
			)
			report.Errors = append(report.Errors, services.ItemError{
				Slug:      item.Slug,
				ContentID: item.ID,
				Message:   err.Error(),
			})
			continue
		}

		entries[item.Slug] = models.SnapshotEntry{
			ContentID: newItemID,
			VersionID: newVersionID,
			Checksum:  checksum,
		}
		report.InheritedCount++
	}

	snapshot := &models.BranchSnapshot{
		ID:         uuid.NewString(),
		BranchID:   target.ID,
		Entries:    entries,
		CapturedAt: time.Now(),
	}
	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		return nil, err
	}
	report.Snapshot = snapshot

	marker := req.BaseMarker
	if marker == "" {
		marker = snapshot.ID
	}
	if err := s.branchRepo.UpdateBaseMarker(ctx, target.ID, marker); err != nil {
		return nil, err
	}

	s.logger.Info("branch inherited content",
		"source_branch_id", source.ID,
		"target_branch_id", target.ID,
		"inherited", report.InheritedCount,
		"failed", len(report.Errors),
	)

	return report, nil
}

// inheritItem copies one published item into the target branch. The copied
// version keeps the original checksum and byte size verbatim: it is a copy,
// not a re-derivation.
func (s *inheritanceService) inheritItem(ctx context.Context, item *models.ContentItem, source, target *models.Branch, actor string) (newItemID, newVersionID, checksum string, err error) {
	published, err := s.versionRepo.GetByID(ctx, *item.PublishedVersionID)
	if err != nil {
		return "", "", "", err
	}

	newItemID = uuid.NewString()
	newVersionID = uuid.NewString()
	now := time.Now()

	newItem := &models.ContentItem{
		ID:                 newItemID,
		BranchID:           target.ID,
		Slug:               item.Slug,
		ContentType:        item.ContentType,
		CurrentVersionID:   newVersionID,
		PublishedVersionID: &newVersionID,
		SourceItemID:       &item.ID,
		BaseVersionID:      &newVersionID,
		MergeState:         models.MergeStateClean,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	newVersion := &models.ContentVersion{
		ID:                newVersionID,
		ContentItemID:     newItemID,
		Body:              published.Body,
		Format:            published.Format,
		Metadata:          published.Metadata,
		AuthorID:          actor,
		Authorship:        models.AuthorshipSystem,
		ByteSize:          published.ByteSize,
		Checksum:          published.Checksum,
		ChangeDescription: inheritChangeDescription,
		CreatedAt:         now,
	}

	entry := &models.MergeHistoryEntry{
		ID:              uuid.NewString(),
		Operation:       models.OpInherit,
		SourceBranchID:  &source.ID,
		TargetBranchID:  target.ID,
		ContentItemID:   newItemID,
		BaseVersionID:   item.PublishedVersionID,
		SourceVersionID: item.PublishedVersionID,
		ResultVersionID: &newVersionID,
		Actor:           actor,
		CreatedAt:       now,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Create(txCtx, newItem); err != nil {
			return err
		}
		if err := s.versionRepo.Create(txCtx, newVersion); err != nil {
			return err
		}
		return s.historyRepo.Append(txCtx, entry)
	})
	if err != nil {
		return "", "", "", err
	}

	return newItemID, newVersionID, published.Checksum, nil
}

func validateInheritRequest(req *services.InheritRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SourceBranchID, validation.Required),
		validation.Field(&req.TargetBranchID, validation.Required,
			validation.By(func(interface{}) error {
				if req.TargetBranchID == req.SourceBranchID {
					return fmt.Errorf("target branch must differ from source branch")
				}
				return nil
			})),
		validation.Field(&req.Actor, validation.Required),
	)
}
