package versioning

import (
	"time"
)

// MergeOperation tags what kind of engine operation produced a history entry.
type MergeOperation string

const (
	OpInherit      MergeOperation = "inherit"
	OpRebaseAdd    MergeOperation = "rebase_add"
	OpRebaseUpdate MergeOperation = "rebase_update"
	OpRebaseUnlink MergeOperation = "rebase_unlink"
	OpResolve      MergeOperation = "resolve"
)

// ResolutionStrategy selects the winning side of a conflict.
type ResolutionStrategy string

const (
	ResolutionOurs   ResolutionStrategy = "ours"
	ResolutionTheirs ResolutionStrategy = "theirs"
	ResolutionManual ResolutionStrategy = "manual"
)

// MergeHistoryEntry is the append-only audit record of every inherit, rebase
// and resolution the engine performs. Entries are never mutated; the audit and
// notification layers consume them downstream.
type MergeHistoryEntry struct {
	ID              string              `json:"id" db:"id"`
	Operation       MergeOperation      `json:"operation" db:"operation"`
	SourceBranchID  *string             `json:"source_branch_id" db:"source_branch_id"`
	TargetBranchID  string              `json:"target_branch_id" db:"target_branch_id"`
	ContentItemID   string              `json:"content_item_id" db:"content_item_id"`
	BaseVersionID   *string             `json:"base_version_id" db:"base_version_id"`
	SourceVersionID *string             `json:"source_version_id" db:"source_version_id"`
	ResultVersionID *string             `json:"result_version_id" db:"result_version_id"`
	HadConflict     bool                `json:"had_conflict" db:"had_conflict"`
	Resolution      *ResolutionStrategy `json:"resolution" db:"resolution"`
	Actor           string              `json:"actor" db:"actor"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
}
