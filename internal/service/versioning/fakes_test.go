package versioning

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	"inkwell/internal/domain/repositories"
	"inkwell/internal/domain/services"
)

// In-memory repository fakes. They mimic the store's observable behavior:
// copies out, copies in, NotFound wrapping, and the partial unique index on
// (branch_id, slug).

type fakeBranchRepo struct {
	branches map[string]*models.Branch
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{branches: make(map[string]*models.Branch)}
}

func (r *fakeBranchRepo) Create(_ context.Context, branch *models.Branch) error {
	if _, ok := r.branches[branch.ID]; ok {
		return &domain.ConflictError{Message: "branch exists", ResourceType: "branch", ResourceID: branch.ID}
	}
	copied := *branch
	r.branches[branch.ID] = &copied
	return nil
}

func (r *fakeBranchRepo) GetByID(_ context.Context, id string) (*models.Branch, error) {
	branch, ok := r.branches[id]
	if !ok {
		return nil, fmt.Errorf("branch %s: %w", id, domain.ErrNotFound)
	}
	copied := *branch
	return &copied, nil
}

func (r *fakeBranchRepo) GetTrunk(_ context.Context, projectID string) (*models.Branch, error) {
	for _, branch := range r.branches {
		if branch.ProjectID == projectID && branch.IsTrunk {
			copied := *branch
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("trunk for project %s: %w", projectID, domain.ErrNotFound)
}

func (r *fakeBranchRepo) UpdateBaseMarker(_ context.Context, id, marker string) error {
	branch, ok := r.branches[id]
	if !ok {
		return fmt.Errorf("branch %s: %w", id, domain.ErrNotFound)
	}
	branch.BaseMarker = marker
	branch.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBranchRepo) SetState(_ context.Context, id string, state models.BranchState) error {
	branch, ok := r.branches[id]
	if !ok {
		return fmt.Errorf("branch %s: %w", id, domain.ErrNotFound)
	}
	branch.State = state
	return nil
}

type fakeItemRepo struct {
	items map[string]*models.ContentItem
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*models.ContentItem)}
}

func (r *fakeItemRepo) Create(_ context.Context, item *models.ContentItem) error {
	for _, existing := range r.items {
		if existing.BranchID == item.BranchID && existing.Slug == item.Slug && !existing.Archived {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("content item '%s' already exists in this branch", item.Slug),
				ResourceType: "content_item",
				ResourceID:   existing.ID,
			}
		}
	}
	copied := copyItem(item)
	r.items[item.ID] = copied
	return nil
}

func (r *fakeItemRepo) GetByID(_ context.Context, id string) (*models.ContentItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("content item %s: %w", id, domain.ErrNotFound)
	}
	return copyItem(item), nil
}

func (r *fakeItemRepo) GetBySlug(_ context.Context, branchID, slug string) (*models.ContentItem, error) {
	for _, item := range r.items {
		if item.BranchID == branchID && item.Slug == slug && !item.Archived {
			return copyItem(item), nil
		}
	}
	return nil, fmt.Errorf("content item '%s' in branch %s: %w", slug, branchID, domain.ErrNotFound)
}

func (r *fakeItemRepo) ListByBranch(_ context.Context, branchID string) ([]models.ContentItem, error) {
	return r.list(func(item *models.ContentItem) bool {
		return item.BranchID == branchID && !item.Archived
	}), nil
}

func (r *fakeItemRepo) ListPublished(_ context.Context, branchID string) ([]models.ContentItem, error) {
	return r.list(func(item *models.ContentItem) bool {
		return item.BranchID == branchID && !item.Archived && item.PublishedVersionID != nil
	}), nil
}

func (r *fakeItemRepo) ListConflicted(_ context.Context, branchID string) ([]models.ContentItem, error) {
	return r.list(func(item *models.ContentItem) bool {
		return item.BranchID == branchID && !item.Archived && item.MergeState == models.MergeStateConflict
	}), nil
}

func (r *fakeItemRepo) Update(_ context.Context, item *models.ContentItem) error {
	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("content item %s: %w", item.ID, domain.ErrNotFound)
	}
	r.items[item.ID] = copyItem(item)
	return nil
}

func (r *fakeItemRepo) SetMergeState(_ context.Context, id string, state models.MergeState, conflict *models.ConflictRecord) error {
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("content item %s: %w", id, domain.ErrNotFound)
	}
	item.MergeState = state
	if conflict != nil {
		copied := *conflict
		item.ConflictData = &copied
	} else {
		item.ConflictData = nil
	}
	item.UpdatedAt = time.Now()
	return nil
}

func (r *fakeItemRepo) Archive(_ context.Context, id string) error {
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("content item %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now()
	item.Archived = true
	item.ArchivedAt = &now
	return nil
}

func (r *fakeItemRepo) list(keep func(*models.ContentItem) bool) []models.ContentItem {
	var items []models.ContentItem
	for _, item := range r.items {
		if keep(item) {
			items = append(items, *copyItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Slug < items[j].Slug })
	if items == nil {
		items = []models.ContentItem{}
	}
	return items
}

func copyItem(item *models.ContentItem) *models.ContentItem {
	copied := *item
	if item.ConflictData != nil {
		record := *item.ConflictData
		copied.ConflictData = &record
	}
	return &copied
}

type fakeVersionRepo struct {
	versions map[string]*models.ContentVersion
}

func newFakeVersionRepo() *fakeVersionRepo {
	return &fakeVersionRepo{versions: make(map[string]*models.ContentVersion)}
}

func (r *fakeVersionRepo) Create(_ context.Context, version *models.ContentVersion) error {
	if _, ok := r.versions[version.ID]; ok {
		return &domain.ConflictError{Message: "version exists", ResourceType: "content_version", ResourceID: version.ID}
	}
	copied := *version
	r.versions[version.ID] = &copied
	return nil
}

func (r *fakeVersionRepo) GetByID(_ context.Context, id string) (*models.ContentVersion, error) {
	version, ok := r.versions[id]
	if !ok {
		return nil, fmt.Errorf("content version %s: %w", id, domain.ErrNotFound)
	}
	copied := *version
	return &copied, nil
}

func (r *fakeVersionRepo) ListByItem(_ context.Context, contentItemID string, limit int) ([]models.ContentVersion, error) {
	var versions []models.ContentVersion
	for _, version := range r.versions {
		if version.ContentItemID == contentItemID {
			versions = append(versions, *version)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].CreatedAt.After(versions[j].CreatedAt) })
	if limit > 0 && len(versions) > limit {
		versions = versions[:limit]
	}
	if versions == nil {
		versions = []models.ContentVersion{}
	}
	return versions, nil
}

type fakeSnapshotRepo struct {
	snapshots map[string]*models.BranchSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[string]*models.BranchSnapshot)}
}

func (r *fakeSnapshotRepo) Save(_ context.Context, snapshot *models.BranchSnapshot) error {
	copied := *snapshot
	copied.Entries = make(map[string]models.SnapshotEntry, len(snapshot.Entries))
	for slug, entry := range snapshot.Entries {
		copied.Entries[slug] = entry
	}
	r.snapshots[snapshot.BranchID] = &copied
	return nil
}

func (r *fakeSnapshotRepo) GetByBranch(_ context.Context, branchID string) (*models.BranchSnapshot, error) {
	snapshot, ok := r.snapshots[branchID]
	if !ok {
		return nil, fmt.Errorf("snapshot for branch %s: %w", branchID, domain.ErrNotFound)
	}
	copied := *snapshot
	copied.Entries = make(map[string]models.SnapshotEntry, len(snapshot.Entries))
	for slug, entry := range snapshot.Entries {
		copied.Entries[slug] = entry
	}
	return &copied, nil
}

type fakeHistoryRepo struct {
	entries []models.MergeHistoryEntry
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Append(_ context.Context, entry *models.MergeHistoryEntry) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByBranch(_ context.Context, branchID string, _ int) ([]models.MergeHistoryEntry, error) {
	var entries []models.MergeHistoryEntry
	for _, entry := range r.entries {
		if entry.TargetBranchID == branchID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *fakeHistoryRepo) ListByItem(_ context.Context, contentItemID string, _ int) ([]models.MergeHistoryEntry, error) {
	var entries []models.MergeHistoryEntry
	for _, entry := range r.entries {
		if entry.ContentItemID == contentItemID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *fakeHistoryRepo) byOperation(op models.MergeOperation) []models.MergeHistoryEntry {
	var entries []models.MergeHistoryEntry
	for _, entry := range r.entries {
		if entry.Operation == op {
			entries = append(entries, entry)
		}
	}
	return entries
}

// fakeTxManager runs the function directly; the fakes have no transactions.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// engineHarness wires the whole engine over the fakes.
type engineHarness struct {
	branches  *fakeBranchRepo
	items     *fakeItemRepo
	versions  *fakeVersionRepo
	snapshots *fakeSnapshotRepo
	history   *fakeHistoryRepo
	sessions  *RebaseSessionStore

	inherit services.InheritanceService
	rebase  services.RebaseService
	resolve services.ConflictResolutionService
	gate    services.PublishGate
}

func newEngineHarness() *engineHarness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &engineHarness{
		branches:  newFakeBranchRepo(),
		items:     newFakeItemRepo(),
		versions:  newFakeVersionRepo(),
		snapshots: newFakeSnapshotRepo(),
		history:   newFakeHistoryRepo(),
		sessions:  NewRebaseSessionStore(),
	}
	tx := fakeTxManager{}
	h.inherit = NewInheritanceService(h.branches, h.items, h.versions, h.snapshots, h.history, tx, logger)
	h.rebase = NewRebaseService(h.branches, h.items, h.versions, h.snapshots, h.history, tx, NewMergeService(), h.sessions, logger)
	h.resolve = NewConflictResolutionService(h.items, h.versions, h.history, tx, h.sessions, logger)
	h.gate = NewPublishGate(h.items, logger)
	return h
}

func (h *engineHarness) mustCreateBranch(projectID, name string, isTrunk bool) *models.Branch {
	state := models.BranchStateDraft
	if isTrunk {
		state = models.BranchStatePublished
	}
	branch := &models.Branch{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		State:     state,
		IsTrunk:   isTrunk,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.branches.Create(context.Background(), branch); err != nil {
		panic(err)
	}
	return branch
}

// mustPublish creates (or updates) an item on a branch with a published
// version carrying the given body.
func (h *engineHarness) mustPublish(branchID, slug, body string) *models.ContentItem {
	ctx := context.Background()
	versionID := uuid.NewString()
	now := time.Now()

	item, err := h.items.GetBySlug(ctx, branchID, slug)
	if err != nil {
		item = &models.ContentItem{
			ID:                 uuid.NewString(),
			BranchID:           branchID,
			Slug:               slug,
			ContentType:        "article",
			CurrentVersionID:   versionID,
			PublishedVersionID: &versionID,
			MergeState:         models.MergeStateClean,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := h.items.Create(ctx, item); err != nil {
			panic(err)
		}
		h.mustAppendVersion(item.ID, versionID, body, nil)
		return item
	}

	parent := item.CurrentVersionID
	h.mustAppendVersion(item.ID, versionID, body, &parent)
	item.CurrentVersionID = versionID
	item.PublishedVersionID = &versionID
	item.UpdatedAt = now
	if err := h.items.Update(ctx, item); err != nil {
		panic(err)
	}
	return item
}

// mustEdit appends a human draft version on an existing item.
func (h *engineHarness) mustEdit(branchID, slug, body string) *models.ContentItem {
	ctx := context.Background()
	item, err := h.items.GetBySlug(ctx, branchID, slug)
	if err != nil {
		panic(err)
	}

	versionID := uuid.NewString()
	parent := item.CurrentVersionID
	h.mustAppendVersion(item.ID, versionID, body, &parent)
	item.CurrentVersionID = versionID
	item.UpdatedAt = time.Now()
	if err := h.items.Update(ctx, item); err != nil {
		panic(err)
	}
	return item
}

func (h *engineHarness) mustAppendVersion(itemID, versionID, body string, parentID *string) {
	version := &models.ContentVersion{
		ID:                versionID,
		ContentItemID:     itemID,
		Body:              body,
		Format:            "markdown",
		Metadata:          NormalizeMetadata(body, "untitled", "", nil),
		AuthorID:          "tester",
		Authorship:        models.AuthorshipHuman,
		ByteSize:          ByteSize(body),
		Checksum:          Checksum(body),
		ParentVersionID:   parentID,
		ChangeDescription: "test edit",
		CreatedAt:         time.Now(),
	}
	if err := h.versions.Create(context.Background(), version); err != nil {
		panic(err)
	}
}

// mustInherit seeds a branch from the trunk and fails the test setup on error.
func (h *engineHarness) mustInherit(trunkID, branchID string) *services.InheritReport {
	report, err := h.inherit.Inherit(context.Background(), &services.InheritRequest{
		SourceBranchID: trunkID,
		TargetBranchID: branchID,
		Actor:          "tester",
	})
	if err != nil {
		panic(err)
	}
	return report
}
