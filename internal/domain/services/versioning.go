package services

import (
	"context"

	"inkwell/internal/domain/models/versioning"
)

// ItemError records a per-item failure inside a batch operation. Batches
// accumulate these and keep going; they never abort on one bad item.
type ItemError struct {
	Slug      string `json:"slug,omitempty"`
	ContentID string `json:"content_id,omitempty"`
	Message   string `json:"message"`
}

// InheritRequest asks the engine to copy the source branch's published
// content into a freshly created target branch.
type InheritRequest struct {
	SourceBranchID string `json:"source_branch_id"`
	TargetBranchID string `json:"target_branch_id"`
	BaseMarker     string `json:"base_marker"` // opaque marker for the target's divergence point
	Actor          string `json:"actor"`
}

// InheritReport is the outcome of an inherit run. A snapshot is always
// written, even when InheritedCount is zero.
type InheritReport struct {
	InheritedCount int                        `json:"inherited_count"`
	Snapshot       *versioning.BranchSnapshot `json:"snapshot"`
	Errors         []ItemError                `json:"errors"`
}

// InheritanceService seeds a new branch from its source branch's published
// content and records the branch's merge base.
type InheritanceService interface {
	Inherit(ctx context.Context, req *InheritRequest) (*InheritReport, error)
}

// ChangeKind classifies what a rebase would do to one slug.
type ChangeKind string

const (
	ChangeNewFromTrunk   ChangeKind = "new_from_trunk"
	ChangeFastForward    ChangeKind = "fast_forward"
	ChangeMerged         ChangeKind = "merged"
	ChangeDeletedInTrunk ChangeKind = "deleted_in_trunk"
)

// PlannedChange is one non-conflicting change a rebase would apply.
type PlannedChange struct {
	Kind           ChangeKind `json:"kind"`
	Slug           string     `json:"slug"`
	TrunkItemID    string     `json:"trunk_item_id,omitempty"`
	TrunkVersionID string     `json:"trunk_version_id,omitempty"`
	BranchItemID   *string    `json:"branch_item_id,omitempty"`
	MergedBody     *string    `json:"merged_body,omitempty"` // only for Kind == ChangeMerged
}

// ConflictPreview is one conflicting slug found during a rebase preview.
type ConflictPreview struct {
	Slug         string                    `json:"slug"`
	BranchItemID string                    `json:"branch_item_id"`
	TrunkItemID  string                    `json:"trunk_item_id"`
	Record       versioning.ConflictRecord `json:"record"`
}

// RebasePreview reports what a rebase would do without touching anything.
type RebasePreview struct {
	BranchID       string            `json:"branch_id"`
	Changes        []PlannedChange   `json:"changes"`
	Conflicts      []ConflictPreview `json:"conflicts"`
	UnchangedCount int               `json:"unchanged_count"`
	CanRebase      bool              `json:"can_rebase"`
}

// RebaseReport is the outcome of a rebase execution. When conflicts block
// the rebase, Success is false, ConflictCount is set and nothing was applied.
type RebaseReport struct {
	Success       bool        `json:"success"`
	AppliedCount  int         `json:"applied_count"`
	UnlinkedCount int         `json:"unlinked_count"`
	ConflictCount int         `json:"conflict_count"`
	NewBaseMarker string      `json:"new_base_marker,omitempty"`
	Errors        []ItemError `json:"errors"`
}

// RebaseService compares a draft branch against its merge base and the
// current trunk, then applies the divergence or surfaces conflicts.
type RebaseService interface {
	// PreviewRebase classifies every trunk item against the branch's
	// snapshot without writing anything
	PreviewRebase(ctx context.Context, branchID string) (*RebasePreview, error)

	// Rebase applies a conflict-free preview, or marks conflicts and opens
	// a rebase session when the preview is not clean
	Rebase(ctx context.Context, branchID, actor string) (*RebaseReport, error)

	// ContinueRebase re-runs the rebase once every session conflict has
	// been resolved; fails with a precondition error otherwise
	ContinueRebase(ctx context.Context, branchID, actor string) (*RebaseReport, error)

	// AbortRebase discards the session and clears conflict state without
	// applying any change
	AbortRebase(ctx context.Context, branchID string) error
}

// ResolveRequest picks a winning side for one conflicted item.
type ResolveRequest struct {
	ContentID         string                        `json:"content_id"`
	Resolution        versioning.ResolutionStrategy `json:"resolution"`
	MergedBody        *string                       `json:"merged_body,omitempty"`        // required when Resolution == manual
	MergedMetadata    *versioning.VersionMetadata   `json:"merged_metadata,omitempty"`    // optional manual metadata override
	ChangeDescription string                        `json:"change_description,omitempty"` // optional note on the resolution version
	Actor             string                        `json:"actor"`
}

// ResolveResult reports the version created by a successful resolution.
type ResolveResult struct {
	ContentID    string `json:"content_id"`
	NewVersionID string `json:"new_version_id"`
}

// BatchResolveReport accumulates a sequential fold over single resolutions.
type BatchResolveReport struct {
	Resolved []ResolveResult `json:"resolved"`
	Errors   []ItemError     `json:"errors"`
}

// ConflictResolutionService applies resolution strategies to conflicted
// items and records the outcome in the merge history.
type ConflictResolutionService interface {
	ResolveConflict(ctx context.Context, req *ResolveRequest) (*ResolveResult, error)

	// ResolveMultipleConflicts resolves each request in order. No cross-item
	// atomicity: earlier successes stand even if later requests fail.
	ResolveMultipleConflicts(ctx context.Context, reqs []ResolveRequest) (*BatchResolveReport, error)
}

// PublishGate is consumed by the (out-of-scope) publish pipeline: any item in
// conflict state is a hard block on publication.
type PublishGate interface {
	// BlockingConflicts returns the slugs of all items currently in
	// conflict state on the branch
	BlockingConflicts(ctx context.Context, branchID string) ([]string, error)
}
