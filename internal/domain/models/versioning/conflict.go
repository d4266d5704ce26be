package versioning

import (
	"time"
)

// ConflictRecord is the transient payload attached to an item in conflict
// state. "Ours" is the trunk's current version, "theirs" the branch's, per
// rebase orientation. Nulled out once the conflict is resolved.
type ConflictRecord struct {
	BaseVersionID   *string   `json:"base_version_id"`
	OursVersionID   string    `json:"ours_version_id"`
	TheirsVersionID string    `json:"theirs_version_id"`
	BaseBody        string    `json:"base_body"`
	OursBody        string    `json:"ours_body"`
	TheirsBody      string    `json:"theirs_body"`
	BaseChecksum    string    `json:"base_checksum"`
	OursChecksum    string    `json:"ours_checksum"`
	TheirsChecksum  string    `json:"theirs_checksum"`
	Markers         string    `json:"markers"` // pre-rendered conflict markers embedding all three variants
	DetectedAt      time.Time `json:"detected_at"`
}
