package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	models "inkwell/internal/domain/models/versioning"
	versioningRepo "inkwell/internal/domain/repositories/versioning"
	"inkwell/internal/domain/services"
	versioningSvc "inkwell/internal/service/versioning"
	"inkwell/internal/utils"
)

// DemoSeeder builds a small editorial scenario end to end: trunk content, a
// draft branch inheriting it, divergent edits on both sides, and a rebase
// with one conflict to resolve.
type DemoSeeder struct {
	branchRepo  versioningRepo.BranchRepository
	itemRepo    versioningRepo.ContentItemRepository
	versionRepo versioningRepo.ContentVersionRepository
	inheritSvc  services.InheritanceService
	rebaseSvc   services.RebaseService
	resolveSvc  services.ConflictResolutionService
	gate        services.PublishGate
	logger      *slog.Logger
}

// NewDemoSeeder creates a new demo seeder
func NewDemoSeeder(
	branchRepo versioningRepo.BranchRepository,
	itemRepo versioningRepo.ContentItemRepository,
	versionRepo versioningRepo.ContentVersionRepository,
	inheritSvc services.InheritanceService,
	rebaseSvc services.RebaseService,
	resolveSvc services.ConflictResolutionService,
	gate services.PublishGate,
	logger *slog.Logger,
) *DemoSeeder {
	return &DemoSeeder{
		branchRepo:  branchRepo,
		itemRepo:    itemRepo,
		versionRepo: versionRepo,
		inheritSvc:  inheritSvc,
		rebaseSvc:   rebaseSvc,
		resolveSvc:  resolveSvc,
		gate:        gate,
		logger:      logger,
	}
}

const demoActor = "demo-editor"

// Run executes the demo scenario against a fresh schema.
func (s *DemoSeeder) Run(ctx context.Context) error {
	projectID := uuid.NewString()

	trunk, err := s.createBranch(ctx, projectID, "main", true)
	if err != nil {
		return fmt.Errorf("create trunk: %w", err)
	}

	if err := s.publishArticle(ctx, trunk.ID, "Getting Started", "---\ntitle: Getting Started\ncategory: guides\n---\nWelcome to the handbook.\nStart with the basics."); err != nil {
		return err
	}
	if err := s.publishArticle(ctx, trunk.ID, "Release Notes", "---\ntitle: Release Notes\n---\nNothing released yet."); err != nil {
		return err
	}

	branch, err := s.createBranch(ctx, projectID, "q3-refresh", false)
	if err != nil {
		return fmt.Errorf("create branch: %w", err)
	}

	report, err := s.inheritSvc.Inherit(ctx, &services.InheritRequest{
		SourceBranchID: trunk.ID,
		TargetBranchID: branch.ID,
		Actor:          demoActor,
	})
	if err != nil {
		return fmt.Errorf("inherit: %w", err)
	}
	s.logger.Info("demo: branch inherited", "count", report.InheritedCount)

	// Diverge: the branch rewrites getting-started, the trunk updates it too
	if err := s.editItem(ctx, branch.ID, "getting-started", "---\ntitle: Getting Started\ncategory: guides\n---\nWelcome to the handbook.\nBranch rewrote this part."); err != nil {
		return err
	}
	if err := s.publishArticle(ctx, trunk.ID, "Getting Started", "---\ntitle: Getting Started\ncategory: guides\n---\nWelcome to the handbook.\nTrunk rewrote this part."); err != nil {
		return err
	}
	// And the trunk adds a brand-new article the branch never saw
	if err := s.publishArticle(ctx, trunk.ID, "Style Guide", "---\ntitle: Style Guide\n---\nWrite short sentences."); err != nil {
		return err
	}

	preview, err := s.rebaseSvc.PreviewRebase(ctx, branch.ID)
	if err != nil {
		return fmt.Errorf("preview rebase: %w", err)
	}
	s.logger.Info("demo: rebase preview",
		"changes", len(preview.Changes),
		"conflicts", len(preview.Conflicts),
		"can_rebase", preview.CanRebase,
	)

	rebase, err := s.rebaseSvc.Rebase(ctx, branch.ID, demoActor)
	if err != nil {
		return fmt.Errorf("rebase: %w", err)
	}

	if !rebase.Success {
		blocked, err := s.gate.BlockingConflicts(ctx, branch.ID)
		if err != nil {
			return err
		}
		s.logger.Info("demo: publication blocked by conflicts", "slugs", blocked)

		for _, slug := range blocked {
			item, err := s.itemRepo.GetBySlug(ctx, branch.ID, slug)
			if err != nil {
				return err
			}
			if _, err := s.resolveSvc.ResolveConflict(ctx, &services.ResolveRequest{
				ContentID:  item.ID,
				Resolution: models.ResolutionTheirs,
				Actor:      demoActor,
			}); err != nil {
				return fmt.Errorf("resolve %s: %w", slug, err)
			}
		}

		if rebase, err = s.rebaseSvc.ContinueRebase(ctx, branch.ID, demoActor); err != nil {
			return fmt.Errorf("continue rebase: %w", err)
		}
	}

	s.logger.Info("demo: rebase finished",
		"applied", rebase.AppliedCount,
		"unlinked", rebase.UnlinkedCount,
		"base_marker", rebase.NewBaseMarker,
	)

	return nil
}

func (s *DemoSeeder) createBranch(ctx context.Context, projectID, name string, isTrunk bool) (*models.Branch, error) {
	now := time.Now()
	branch := &models.Branch{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		State:     models.BranchStateDraft,
		IsTrunk:   isTrunk,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if isTrunk {
		branch.State = models.BranchStatePublished
	}
	if err := s.branchRepo.Create(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// publishArticle creates or updates a trunk item and marks the new version
// published, standing in for the out-of-scope editorial pipeline. The slug is
// derived from the title.
func (s *DemoSeeder) publishArticle(ctx context.Context, branchID, title, body string) error {
	slug := utils.Slugify(title)
	if err := utils.ValidateSlug(slug); err != nil {
		return fmt.Errorf("slug for %q: %w", title, err)
	}

	now := time.Now()
	versionID := uuid.NewString()

	item, err := s.itemRepo.GetBySlug(ctx, branchID, slug)
	if err != nil {
		item = &models.ContentItem{
			ID:          uuid.NewString(),
			BranchID:    branchID,
			Slug:        slug,
			ContentType: "article",
			MergeState:  models.MergeStateClean,
			CreatedAt:   now,
		}
		item.CurrentVersionID = versionID
		item.PublishedVersionID = &versionID
		item.UpdatedAt = now
		if err := s.itemRepo.Create(ctx, item); err != nil {
			return fmt.Errorf("create %s: %w", slug, err)
		}
		return s.appendVersion(ctx, item, versionID, body, nil)
	}

	parent := item.CurrentVersionID
	if err := s.appendVersion(ctx, item, versionID, body, &parent); err != nil {
		return err
	}
	item.CurrentVersionID = versionID
	item.PublishedVersionID = &versionID
	item.UpdatedAt = now
	if err := s.itemRepo.Update(ctx, item); err != nil {
		return fmt.Errorf("publish %s: %w", slug, err)
	}
	return nil
}

// editItem appends a human-authored draft version on a branch item.
func (s *DemoSeeder) editItem(ctx context.Context, branchID, slug, body string) error {
	item, err := s.itemRepo.GetBySlug(ctx, branchID, slug)
	if err != nil {
		return err
	}

	versionID := uuid.NewString()
	parent := item.CurrentVersionID
	if err := s.appendVersion(ctx, item, versionID, body, &parent); err != nil {
		return err
	}

	item.CurrentVersionID = versionID
	item.UpdatedAt = time.Now()
	return s.itemRepo.Update(ctx, item)
}

func (s *DemoSeeder) appendVersion(ctx context.Context, item *models.ContentItem, versionID, body string, parentID *string) error {
	version := &models.ContentVersion{
		ID:                versionID,
		ContentItemID:     item.ID,
		Body:              body,
		Format:            "markdown",
		Metadata:          versioningSvc.NormalizeMetadata(body, item.Slug, "", nil),
		AuthorID:          demoActor,
		Authorship:        models.AuthorshipHuman,
		ByteSize:          versioningSvc.ByteSize(body),
		Checksum:          versioningSvc.Checksum(body),
		ParentVersionID:   parentID,
		ChangeDescription: "Demo edit",
		CreatedAt:         time.Now(),
	}
	if err := s.versionRepo.Create(ctx, version); err != nil {
		return fmt.Errorf("create version for %s: %w", item.Slug, err)
	}
	return nil
}
