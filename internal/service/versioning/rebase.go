package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	"inkwell/internal/domain/repositories"
	versioningRepo "inkwell/internal/domain/repositories/versioning"
	"inkwell/internal/domain/services"
)

// rebaseService implements the RebaseService interface
type rebaseService struct {
	branchRepo   versioningRepo.BranchRepository
	itemRepo     versioningRepo.ContentItemRepository
	versionRepo  versioningRepo.ContentVersionRepository
	snapshotRepo versioningRepo.SnapshotRepository
	historyRepo  versioningRepo.MergeHistoryRepository
	txManager    repositories.TransactionManager
	merger       *MergeService
	sessions     *RebaseSessionStore
	logger       *slog.Logger
}

// NewRebaseService creates a new rebase service
func NewRebaseService(
	branchRepo versioningRepo.BranchRepository,
	itemRepo versioningRepo.ContentItemRepository,
	versionRepo versioningRepo.ContentVersionRepository,
	snapshotRepo versioningRepo.SnapshotRepository,
	historyRepo versioningRepo.MergeHistoryRepository,
	txManager repositories.TransactionManager,
	merger *MergeService,
	sessions *RebaseSessionStore,
	logger *slog.Logger,
) services.RebaseService {
	return &rebaseService{
		branchRepo:   branchRepo,
		itemRepo:     itemRepo,
		versionRepo:  versionRepo,
		snapshotRepo: snapshotRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		merger:       merger,
		sessions:     sessions,
		logger:       logger,
	}
}

// classification carries everything the apply phase needs beyond the
// caller-facing preview: the loaded branches, the old snapshot, and the
// carried-forward manifest entries for unchanged slugs.
type classification struct {
	preview *services.RebasePreview
	branch  *models.Branch
	trunk   *models.Branch
	old     *models.BranchSnapshot
	// next manifest baseline; apply adds entries for every change it lands
	entries map[string]models.SnapshotEntry
}

// PreviewRebase classifies every trunk item against the branch's snapshot
// without writing anything.
func (s *rebaseService) PreviewRebase(ctx context.Context, branchID string) (*services.RebasePreview, error) {
	data, err := s.classify(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return data.preview, nil
}

// Rebase applies a conflict-free preview, or marks conflicts and opens a
// rebase session when the preview is not clean.
func (s *rebaseService) Rebase(ctx context.Context, branchID, actor string) (*services.RebaseReport, error) {
	unlock := s.sessions.LockBranch(branchID)
	defer unlock()

	return s.rebaseLocked(ctx, branchID, actor)
}

// ContinueRebase re-runs the rebase once every session conflict has been
// resolved.
func (s *rebaseService) ContinueRebase(ctx context.Context, branchID, actor string) (*services.RebaseReport, error) {
	unlock := s.sessions.LockBranch(branchID)
	defer unlock()

	unresolved, active := s.sessions.Unresolved(branchID)
	if !active {
		return nil, &domain.PreconditionError{Message: fmt.Sprintf("no rebase in progress for branch %s", branchID)}
	}
	if len(unresolved) > 0 {
		return nil, &domain.PreconditionError{Message: fmt.Sprintf("%d conflicts remain unresolved", len(unresolved))}
	}

	// Every conflict is resolved; the re-run picks the resolved items up as
	// merged updates and clears their state
	return s.rebaseLocked(ctx, branchID, actor)
}

// AbortRebase discards the session and clears conflict state without
// applying any change.
func (s *rebaseService) AbortRebase(ctx context.Context, branchID string) error {
	unlock := s.sessions.LockBranch(branchID)
	defer unlock()

	if !s.sessions.Active(branchID) {
		return &domain.PreconditionError{Message: fmt.Sprintf("no rebase in progress for branch %s", branchID)}
	}

	for _, itemID := range s.sessions.Tracked(branchID) {
		if err := s.itemRepo.SetMergeState(ctx, itemID, models.MergeStateClean, nil); err != nil {
			s.logger.Warn("failed to clear conflict state on abort",
				"branch_id", branchID,
				"content_item_id", itemID,
				"error", err,
			)
		}
	}

	s.sessions.End(branchID)
	s.logger.Info("rebase aborted", "branch_id", branchID)
	return nil
}

func (s *rebaseService) rebaseLocked(ctx context.Context, branchID, actor string) (*services.RebaseReport, error) {
	data, err := s.classify(ctx, branchID)
	if err != nil {
		return nil, err
	}

	if len(data.preview.Conflicts) > 0 {
		return s.markConflicts(ctx, data)
	}

	return s.applyChanges(ctx, data, actor)
}

// classify loads the branch, trunk, and snapshot, then decides per trunk slug
// what a rebase would do. Read-only.
func (s *rebaseService) classify(ctx context.Context, branchID string) (*classification, error) {
	branch, err := s.branchRepo.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if branch.IsTrunk {
		return nil, &domain.PreconditionError{Message: "trunk cannot rebase"}
	}
	if !branch.CanRebase() {
		return nil, &domain.PreconditionError{Message: fmt.Sprintf("branch %s is in state %s, only draft branches may rebase", branchID, branch.State)}
	}

	trunk, err := s.branchRepo.GetTrunk(ctx, branch.ProjectID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.snapshotRepo.GetByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	trunkItems, err := s.itemRepo.ListPublished(ctx, trunk.ID)
	if err != nil {
		return nil, err
	}
	branchItems, err := s.itemRepo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	bySlug := make(map[string]*models.ContentItem, len(branchItems))
	for i := range branchItems {
		bySlug[branchItems[i].Slug] = &branchItems[i]
	}

	data := &classification{
		preview: &services.RebasePreview{
			BranchID:  branchID,
			Changes:   []services.PlannedChange{},
			Conflicts: []services.ConflictPreview{},
		},
		branch:  branch,
		trunk:   trunk,
		old:     snapshot,
		entries: make(map[string]models.SnapshotEntry),
	}

	trunkSlugs := make(map[string]bool, len(trunkItems))
	for i := range trunkItems {
		trunkItem := &trunkItems[i]
		trunkSlugs[trunkItem.Slug] = true
		if err := s.classifyTrunkItem(ctx, data, trunkItem, bySlug[trunkItem.Slug]); err != nil {
			// Preview is best-effort per item; apply repeats the loads and
			// reports failures properly
			s.logger.Warn("skipping unclassifiable trunk item",
				"slug", trunkItem.Slug,
				"trunk_item_id", trunkItem.ID,
				"error", err,
			)
		}
	}

	// Slugs recorded in the manifest but gone from trunk: unlink, not delete
	for slug := range snapshot.Entries {
		if trunkSlugs[slug] {
			continue
		}
		branchItem, ok := bySlug[slug]
		if !ok || branchItem.SourceItemID == nil {
			continue
		}
		data.preview.Changes = append(data.preview.Changes, services.PlannedChange{
			Kind:         services.ChangeDeletedInTrunk,
			Slug:         slug,
			BranchItemID: &branchItem.ID,
		})
	}

	data.preview.CanRebase = len(data.preview.Conflicts) == 0
	return data, nil
}

// classifyTrunkItem decides what the rebase does for one trunk slug.
func (s *rebaseService) classifyTrunkItem(ctx context.Context, data *classification, trunkItem *models.ContentItem, branchItem *models.ContentItem) error {
	trunkVersion, err := s.versionRepo.GetByID(ctx, *trunkItem.PublishedVersionID)
	if err != nil {
		return err
	}

	entry, inManifest := data.old.Lookup(trunkItem.Slug)

	// Not recorded at divergence time: the trunk added it since
	if !inManifest {
		data.preview.Changes = append(data.preview.Changes, services.PlannedChange{
			Kind:           services.ChangeNewFromTrunk,
			Slug:           trunkItem.Slug,
			TrunkItemID:    trunkItem.ID,
			TrunkVersionID: trunkVersion.ID,
		})
		return nil
	}

	// Trunk unchanged since divergence: carry the manifest entry forward
	if trunkVersion.Checksum == entry.Checksum {
		data.preview.UnchangedCount++
		data.entries[trunkItem.Slug] = entry
		return nil
	}

	// Trunk changed and the branch no longer has the item: re-add from
	// trunk. Branch-side deletes are not preserved across a rebase; trunk
	// consistency wins (documented policy)
	if branchItem == nil {
		data.preview.Changes = append(data.preview.Changes, services.PlannedChange{
			Kind:           services.ChangeNewFromTrunk,
			Slug:           trunkItem.Slug,
			TrunkItemID:    trunkItem.ID,
			TrunkVersionID: trunkVersion.ID,
		})
		return nil
	}

	branchCurrent, err := s.versionRepo.GetByID(ctx, branchItem.CurrentVersionID)
	if err != nil {
		return err
	}

	// A resolved conflict already embodies the caller's merge decision;
	// re-running the three-way merge would just re-conflict. Land the
	// resolved body as the merged result.
	if branchItem.MergeState == models.MergeStateResolved {
		body := branchCurrent.Body
		data.preview.Changes = append(data.preview.Changes, services.PlannedChange{
			Kind:           services.ChangeMerged,
			Slug:           trunkItem.Slug,
			TrunkItemID:    trunkItem.ID,
			TrunkVersionID: trunkVersion.ID,
			BranchItemID:   &branchItem.ID,
			MergedBody:     &body,
		})
		return nil
	}

	baseVersionID := entry.VersionID
	if branchItem.BaseVersionID != nil {
		baseVersionID = *branchItem.BaseVersionID
	}
	baseVersion, err := s.versionRepo.GetByID(ctx, baseVersionID)
	if err != nil {
		return err
	}

	// No local edit since the base: the trunk update fast-forwards in
	if branchCurrent.Checksum == baseVersion.Checksum {
		data.preview.Changes = append(data.preview.Changes, services.PlannedChange{
			Kind:           services.ChangeFastForward,
			Slug:           trunkItem.Slug,
			TrunkItemID:    trunkItem.ID,
			TrunkVersionID: trunkVersion.ID,
			BranchItemID:   &branchItem.ID,
		})
		return nil
	}

	// Both sides diverged: three-way merge decides
	merged := s.merger.Merge(baseVersion.Body, trunkVersion.Body, branchCurrent.Body)
	if !merged.HasConflict {
		data.preview.Changes = append(data.preview.Changes, services.PlannedChange{
			Kind:           services.ChangeMerged,
			Slug:           trunkItem.Slug,
			TrunkItemID:    trunkItem.ID,
			TrunkVersionID: trunkVersion.ID,
			BranchItemID:   &branchItem.ID,
			MergedBody:     merged.Result,
		})
		return nil
	}

	data.preview.Conflicts = append(data.preview.Conflicts, services.ConflictPreview{
		Slug:         trunkItem.Slug,
		BranchItemID: branchItem.ID,
		TrunkItemID:  trunkItem.ID,
		Record: models.ConflictRecord{
			BaseVersionID:   branchItem.BaseVersionID,
			OursVersionID:   trunkVersion.ID,
			TheirsVersionID: branchCurrent.ID,
			BaseBody:        baseVersion.Body,
			OursBody:        trunkVersion.Body,
			TheirsBody:      branchCurrent.Body,
			BaseChecksum:    baseVersion.Checksum,
			OursChecksum:    trunkVersion.Checksum,
			TheirsChecksum:  branchCurrent.Checksum,
			Markers:         *merged.ConflictMarkers,
			DetectedAt:      time.Now(),
		},
	})
	return nil
}

// markConflicts persists conflict state on every conflicting item and opens
// the branch's rebase session. Nothing else is applied: a blocked rebase
// leaves clean items untouched.
func (s *rebaseService) markConflicts(ctx context.Context, data *classification) (*services.RebaseReport, error) {
	report := &services.RebaseReport{
		ConflictCount: len(data.preview.Conflicts),
		Errors:        []services.ItemError{},
	}

	conflictIDs := make([]string, 0, len(data.preview.Conflicts))
	for i := range data.preview.Conflicts {
		conflict := &data.preview.Conflicts[i]
		record := conflict.Record
		if err := s.itemRepo.SetMergeState(ctx, conflict.BranchItemID, models.MergeStateConflict, &record); err != nil {
			s.logger.Error("failed to mark conflict",
				"branch_id", data.branch.ID,
				"content_item_id", conflict.BranchItemID,
				"error", err,
			)
			report.Errors = append(report.Errors, services.ItemError{
				Slug:      conflict.Slug,
				ContentID: conflict.BranchItemID,
				Message:   err.Error(),
			})
			continue
		}
		conflictIDs = append(conflictIDs, conflict.BranchItemID)
	}

	s.sessions.Begin(data.branch.ID, conflictIDs)

	s.logger.Info("rebase blocked by conflicts",
		"branch_id", data.branch.ID,
		"conflicts", len(conflictIDs),
	)

	return report, nil
}

// applyChanges lands every planned change, each in its own transaction.
// Per-item failures are logged, reported and skipped; the rebase keeps going.
func (s *rebaseService) applyChanges(ctx context.Context, data *classification, actor string) (*services.RebaseReport, error) {
	report := &services.RebaseReport{
		Success: true,
		Errors:  []services.ItemError{},
	}

	for i := range data.preview.Changes {
		change := &data.preview.Changes[i]

		var err error
		switch change.Kind {
		case services.ChangeNewFromTrunk:
			err = s.applyNewFromTrunk(ctx, data, change, actor)
		case services.ChangeFastForward, services.ChangeMerged:
			err = s.applyUpdate(ctx, data, change, actor)
		case services.ChangeDeletedInTrunk:
			err = s.applyUnlink(ctx, data, change, actor)
		default:
			err = fmt.Errorf("unknown change kind %q", change.Kind)
		}

		if err != nil {
			s.logger.Warn("failed to apply rebase change",
				"branch_id", data.branch.ID,
				"slug", change.Slug,
				"kind", change.Kind,
				"error", err,
			)
			report.Errors = append(report.Errors, services.ItemError{
				Slug:    change.Slug,
				Message: err.Error(),
			})
			// Keep the previous manifest entry so the next rebase retries
			// this slug instead of treating it as brand new
			if entry, ok := data.old.Lookup(change.Slug); ok {
				data.entries[change.Slug] = entry
			}
			continue
		}

		if change.Kind == services.ChangeDeletedInTrunk {
			report.UnlinkedCount++
		} else {
			report.AppliedCount++
		}
	}

	snapshot := &models.BranchSnapshot{
		ID:         uuid.NewString(),
		BranchID:   data.branch.ID,
		Entries:    data.entries,
		CapturedAt: time.Now(),
	}
	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		return nil, err
	}

	if err := s.branchRepo.UpdateBaseMarker(ctx, data.branch.ID, snapshot.ID); err != nil {
		return nil, err
	}
	report.NewBaseMarker = snapshot.ID

	s.sessions.End(data.branch.ID)

	s.logger.Info("rebase applied",
		"branch_id", data.branch.ID,
		"applied", report.AppliedCount,
		"unlinked", report.UnlinkedCount,
		"unchanged", data.preview.UnchangedCount,
		"failed", len(report.Errors),
	)

	return report, nil
}

// applyNewFromTrunk copies a trunk item the branch does not have, exactly the
// way inheritance copies it.
func (s *rebaseService) applyNewFromTrunk(ctx context.Context, data *classification, change *services.PlannedChange, actor string) error {
	trunkVersion, err := s.versionRepo.GetByID(ctx, change.TrunkVersionID)
	if err != nil {
		return err
	}
	trunkItem, err := s.itemRepo.GetByID(ctx, change.TrunkItemID)
	if err != nil {
		return err
	}

	newItemID := uuid.NewString()
	newVersionID := uuid.NewString()
	now := time.Now()

	newItem := &models.ContentItem{
		ID:                 newItemID,
		BranchID:           data.branch.ID,
		Slug:               trunkItem.Slug,
		ContentType:        trunkItem.ContentType,
		CurrentVersionID:   newVersionID,
		PublishedVersionID: &newVersionID,
		SourceItemID:       &trunkItem.ID,
		BaseVersionID:      &newVersionID,
		MergeState:         models.MergeStateClean,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	newVersion := &models.ContentVersion{
		ID:                newVersionID,
		ContentItemID:     newItemID,
		Body:              trunkVersion.Body,
		Format:            trunkVersion.Format,
		Metadata:          trunkVersion.Metadata,
		AuthorID:          actor,
		Authorship:        models.AuthorshipSystem,
		ByteSize:          trunkVersion.ByteSize,
		Checksum:          trunkVersion.Checksum,
		ChangeDescription: "Added from trunk during rebase",
		CreatedAt:         now,
	}

	entry := &models.MergeHistoryEntry{
		ID:              uuid.NewString(),
		Operation:       models.OpRebaseAdd,
		SourceBranchID:  &data.trunk.ID,
		TargetBranchID:  data.branch.ID,
		ContentItemID:   newItemID,
		SourceVersionID: &trunkVersion.ID,
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
		return err
	}

	data.entries[change.Slug] = models.SnapshotEntry{
		ContentID: newItemID,
		VersionID: newVersionID,
		Checksum:  trunkVersion.Checksum,
	}
	return nil
}

// applyUpdate lands a fast-forward or merged body as a new system version and
// re-anchors the item's merge base on it.
func (s *rebaseService) applyUpdate(ctx context.Context, data *classification, change *services.PlannedChange, actor string) error {
	trunkVersion, err := s.versionRepo.GetByID(ctx, change.TrunkVersionID)
	if err != nil {
		return err
	}
	item, err := s.itemRepo.GetByID(ctx, *change.BranchItemID)
	if err != nil {
		return err
	}

	var body, checksum, description string
	if change.Kind == services.ChangeFastForward {
		// Verbatim trunk copy, checksum included
		body = trunkVersion.Body
		checksum = trunkVersion.Checksum
		description = "Fast-forwarded from trunk during rebase"
	} else {
		body = *change.MergedBody
		checksum = Checksum(body)
		description = "Merged trunk changes during rebase"
	}

	newVersionID := uuid.NewString()
	now := time.Now()
	parentID := item.CurrentVersionID

	newVersion := &models.ContentVersion{
		ID:                newVersionID,
		ContentItemID:     item.ID,
		Body:              body,
		Format:            trunkVersion.Format,
		Metadata:          NormalizeMetadata(body, trunkVersion.Metadata.Title, trunkVersion.Metadata.Category, trunkVersion.Metadata.Tags),
		AuthorID:          actor,
		Authorship:        models.AuthorshipSystem,
		ByteSize:          ByteSize(body),
		Checksum:          checksum,
		ParentVersionID:   &parentID,
		ChangeDescription: description,
		CreatedAt:         now,
	}

	item.CurrentVersionID = newVersionID
	item.BaseVersionID = &newVersionID
	item.SourceItemID = &change.TrunkItemID
	item.MergeState = models.MergeStateClean
	item.ConflictData = nil
	item.UpdatedAt = now

	historyEntry := &models.MergeHistoryEntry{
		ID:              uuid.NewString(),
		Operation:       models.OpRebaseUpdate,
		SourceBranchID:  &data.trunk.ID,
		TargetBranchID:  data.branch.ID,
		ContentItemID:   item.ID,
		BaseVersionID:   &parentID,
		SourceVersionID: &trunkVersion.ID,
		ResultVersionID: &newVersionID,
		Actor:           actor,
		CreatedAt:       now,
	}

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
		return err
	}

	data.entries[change.Slug] = models.SnapshotEntry{
		ContentID: item.ID,
		VersionID: newVersionID,
		Checksum:  trunkVersion.Checksum,
	}
	return nil
}

// applyUnlink orphans a branch item whose trunk counterpart is gone. The item
// and its versions stay; only the source link is severed.
func (s *rebaseService) applyUnlink(ctx context.Context, data *classification, change *services.PlannedChange, actor string) error {
	item, err := s.itemRepo.GetByID(ctx, *change.BranchItemID)
	if err != nil {
		return err
	}

	now := time.Now()
	item.SourceItemID = nil
	item.BaseVersionID = nil
	item.UpdatedAt = now

	historyEntry := &models.MergeHistoryEntry{
		ID:             uuid.NewString(),
		Operation:      models.OpRebaseUnlink,
		SourceBranchID: &data.trunk.ID,
		TargetBranchID: data.branch.ID,
		ContentItemID:  item.ID,
		Actor:          actor,
		CreatedAt:      now,
	}

	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return err
		}
		return s.historyRepo.Append(txCtx, historyEntry)
	})
}
