package versioning

import (
	"time"
)

// SnapshotEntry records what one slug looked like relative to the trunk at
// divergence time. The checksum is the trunk version's checksum, used for
// change detection without loading bodies.
type SnapshotEntry struct {
	ContentID string `json:"content_id"`
	VersionID string `json:"version_id"`
	Checksum  string `json:"checksum"`
}

// BranchSnapshot is the branch's merge base: a slug -> entry mapping captured
// at branch creation and refreshed after every successful rebase. An empty
// mapping is a valid snapshot; a missing snapshot row means "this branch is
// the trunk", never "this branch has no content".
type BranchSnapshot struct {
	ID         string                   `json:"id" db:"id"`
	BranchID   string                   `json:"branch_id" db:"branch_id"`
	Entries    map[string]SnapshotEntry `json:"entries" db:"entries"`
	CapturedAt time.Time                `json:"captured_at" db:"captured_at"`
}

// Lookup returns the entry for slug, if recorded.
func (s *BranchSnapshot) Lookup(slug string) (SnapshotEntry, bool) {
	e, ok := s.Entries[slug]
	return e, ok
}
