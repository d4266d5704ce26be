package versioning

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/domain"
	models "inkwell/internal/domain/models/versioning"
	"inkwell/internal/domain/services"
)

func TestInheritCopiesPublishedContent(t *testing.T) {
	h := newEngineHarness()
	ctx := context.Background()

	trunk := h.mustCreateBranch("project-1", "main", true)
	h.mustPublish(trunk.ID, "getting-started", "Welcome.\nStart here.")
	h.mustPublish(trunk.ID, "release-notes", "Nothing yet.")

	// A draft without a published version must not be inherited
	draftOnly := &models.ContentItem{}
	*draftOnly = *h.mustPublish(trunk.ID, "work-in-progress", "draft")
	draftOnly.PublishedVersionID = nil
	if err := h.items.Update(ctx, draftOnly); err != nil {
		t.Fatal(err)
	}

	branch := h.mustCreateBranch("project-1", "feature", false)
	report := h.mustInherit(trunk.ID, branch.ID)

	if report.InheritedCount != 2 {
		t.Errorf("InheritedCount = %d, want 2", report.InheritedCount)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}
	if report.Snapshot == nil || len(report.Snapshot.Entries) != 2 {
		t.Fatalf("snapshot = %+v, want 2 entries", report.Snapshot)
	}

	copied, err := h.items.GetBySlug(ctx, branch.ID, "getting-started")
	if err != nil {
		t.Fatal(err)
	}
	if copied.SourceItemID == nil {
		t.Error("inherited item should link back to its trunk source")
	}
	if copied.BaseVersionID == nil || *copied.BaseVersionID != copied.CurrentVersionID {
		t.Error("inherited item's base version should anchor on the copied version")
	}
	if copied.MergeState != models.MergeStateClean {
		t.Errorf("MergeState = %s, want clean", copied.MergeState)
	}

	// The copy keeps the source body and checksum verbatim
	version, err := h.versions.GetByID(ctx, copied.CurrentVersionID)
	if err != nil {
		t.Fatal(err)
	}
	if version.Body != "Welcome.\nStart here." {
		t.Errorf("copied body = %q", version.Body)
	}
	if version.Checksum != Checksum(version.Body) {
		t.Error("copied checksum does not match the body")
	}
	if version.Authorship != models.AuthorshipSystem {
		t.Errorf("Authorship = %s, want system", version.Authorship)
	}

	entry, ok := report.Snapshot.Lookup("getting-started")
	if !ok {
		t.Fatal("snapshot missing getting-started")
	}
	if entry.ContentID != copied.ID || entry.VersionID != copied.CurrentVersionID || entry.Checksum != version.Checksum {
		t.Errorf("snapshot entry = %+v, does not match the copy", entry)
	}

	// Base marker defaults to the snapshot id
	updated, err := h.branches.GetByID(ctx, branch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.BaseMarker != report.Snapshot.ID {
		t.Errorf("BaseMarker = %q, want snapshot id %q", updated.BaseMarker, report.Snapshot.ID)
	}

	if got := len(h.history.byOperation(models.OpInherit)); got != 2 {
		t.Errorf("inherit history entries = %d, want 2", got)
	}
}

func TestInheritEmptyTrunk(t *testing.T) {
	h := newEngineHarness()
	ctx := context.Background()

	trunk := h.mustCreateBranch("project-1", "main", true)
	branch := h.mustCreateBranch("project-1", "feature", false)

	report := h.mustInherit(trunk.ID, branch.ID)

	if report.InheritedCount != 0 {
		t.Errorf("InheritedCount = %d, want 0", report.InheritedCount)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want empty", report.Errors)
	}
	// The empty snapshot is still written: missing snapshot means trunk
	snapshot, err := h.snapshots.GetByBranch(ctx, branch.ID)
	if err != nil {
		t.Fatalf("expected a persisted snapshot, got %v", err)
	}
	if len(snapshot.Entries) != 0 {
		t.Errorf("snapshot entries = %v, want empty", snapshot.Entries)
	}
}

func TestInheritRejectsTrunkTarget(t *testing.T) {
	h := newEngineHarness()

	trunk := h.mustCreateBranch("project-1", "main", true)
	other := h.mustCreateBranch("project-1", "feature", false)

	_, err := h.inherit.Inherit(context.Background(), &services.InheritRequest{
		SourceBranchID: other.ID,
		TargetBranchID: trunk.ID,
		Actor:          "tester",
	})

	var precondition *domain.PreconditionError
	if !errors.As(err, &precondition) {
		t.Errorf("err = %v, want PreconditionError", err)
	}
}

func TestInheritValidation(t *testing.T) {
	h := newEngineHarness()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *services.InheritRequest
	}{
		{"missing source", &services.InheritRequest{TargetBranchID: "b", Actor: "a"}},
		{"missing target", &services.InheritRequest{SourceBranchID: "b", Actor: "a"}},
		{"missing actor", &services.InheritRequest{SourceBranchID: "a", TargetBranchID: "b"}},
		{"source equals target", &services.InheritRequest{SourceBranchID: "b", TargetBranchID: "b", Actor: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.inherit.Inherit(ctx, tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestInheritCollectsItemErrors(t *testing.T) {
	h := newEngineHarness()
	ctx := context.Background()

	trunk := h.mustCreateBranch("project-1", "main", true)
	good := h.mustPublish(trunk.ID, "good", "fine")
	_ = good

	// Dangling published version id: the item fails, the run does not
	broken := h.mustPublish(trunk.ID, "broken", "body")
	missing := "no-such-version"
	broken.PublishedVersionID = &missing
	if err := h.items.Update(ctx, broken); err != nil {
		t.Fatal(err)
	}

	branch := h.mustCreateBranch("project-1", "feature", false)
	report := h.mustInherit(trunk.ID, branch.ID)

	if report.InheritedCount != 1 {
		t.Errorf("InheritedCount = %d, want 1", report.InheritedCount)
	}
	if len(report.Errors) != 1 || report.Errors[0].Slug != "broken" {
		t.Errorf("Errors = %v, want one entry for slug broken", report.Errors)
	}
	if _, ok := report.Snapshot.Lookup("broken"); ok {
		t.Error("failed item must not appear in the snapshot")
	}
	if _, ok := report.Snapshot.Lookup("good"); !ok {
		t.Error("successful item missing from the snapshot")
	}
}
