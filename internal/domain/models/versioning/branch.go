package versioning

import (
	"time"
)

// BranchState is the editorial lifecycle state of a branch. Only draft
// branches may rebase; the publish pipeline owns the rest of the lifecycle.
type BranchState string

const (
	BranchStateDraft     BranchState = "draft"
	BranchStateReview    BranchState = "review"
	BranchStateApproved  BranchState = "approved"
	BranchStatePublished BranchState = "published"
	BranchStateArchived  BranchState = "archived"
)

// Branch is an isolated editing line over a project's content. The trunk is
// the single branch with IsTrunk set; it is the only branch without a
// snapshot row.
type Branch struct {
	ID           string      `json:"id" db:"id"`
	ProjectID    string      `json:"project_id" db:"project_id"`
	Name         string      `json:"name" db:"name"`
	State        BranchState `json:"state" db:"state"`
	IsTrunk      bool        `json:"is_trunk" db:"is_trunk"`
	BaseBranchID *string     `json:"base_branch_id" db:"base_branch_id"` // NULL for the trunk
	BaseMarker   string      `json:"base_marker" db:"base_marker"`       // opaque divergence marker, advanced on rebase
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// CanRebase reports whether the branch is in a state that permits rebasing.
func (b *Branch) CanRebase() bool {
	return b.State == BranchStateDraft
}
