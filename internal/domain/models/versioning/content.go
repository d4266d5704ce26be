package versioning

import (
	"time"
)

// MergeState tracks an item's position in the conflict lifecycle.
type MergeState string

const (
	MergeStateClean    MergeState = "clean"
	MergeStateConflict MergeState = "conflict"
	MergeStateResolved MergeState = "resolved"
)

// AuthorshipKind distinguishes human edits from versions the engine writes
// itself (inheritance copies, rebase auto-merges, fast-forwards).
type AuthorshipKind string

const (
	AuthorshipHuman  AuthorshipKind = "human"
	AuthorshipSystem AuthorshipKind = "system"
)

// ContentItem is a named, slugged unit of structured text scoped to exactly
// one branch. (branch_id, slug) is unique among non-archived items.
type ContentItem struct {
	ID                 string          `json:"id" db:"id"`
	BranchID           string          `json:"branch_id" db:"branch_id"`
	Slug               string          `json:"slug" db:"slug"`
	ContentType        string          `json:"content_type" db:"content_type"`
	CurrentVersionID   string          `json:"current_version_id" db:"current_version_id"`
	PublishedVersionID *string         `json:"published_version_id" db:"published_version_id"`
	SourceItemID       *string         `json:"source_item_id" db:"source_item_id"` // trunk item this was inherited from; NULL = branch-local or orphaned
	BaseVersionID      *string         `json:"base_version_id" db:"base_version_id"`
	MergeState         MergeState      `json:"merge_state" db:"merge_state"`
	ConflictData       *ConflictRecord `json:"conflict_data,omitempty" db:"conflict_data"`
	Archived           bool            `json:"archived" db:"archived"`
	ArchivedAt         *time.Time      `json:"archived_at" db:"archived_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// IsPublished reports whether the item has a published version.
func (c *ContentItem) IsPublished() bool {
	return c.PublishedVersionID != nil
}

// InConflict reports whether the item currently blocks publication.
func (c *ContentItem) InConflict() bool {
	return c.MergeState == MergeStateConflict
}

// VersionMetadata is the normalized metadata snapshot carried by every
// version: what the item's title/category/tags looked like at that version.
type VersionMetadata struct {
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ContentVersion is an immutable snapshot in an item's version chain.
// Versions are only ever inserted and referenced, never mutated or deleted.
type ContentVersion struct {
	ID                string          `json:"id" db:"id"`
	ContentItemID     string          `json:"content_item_id" db:"content_item_id"`
	Body              string          `json:"body" db:"body"`
	Format            string          `json:"format" db:"format"` // e.g. "markdown"
	Metadata          VersionMetadata `json:"metadata" db:"metadata"`
	AuthorID          string          `json:"author_id" db:"author_id"`
	Authorship        AuthorshipKind  `json:"authorship" db:"authorship"`
	ByteSize          int             `json:"byte_size" db:"byte_size"`
	Checksum          string          `json:"checksum" db:"checksum"`
	ParentVersionID   *string         `json:"parent_version_id" db:"parent_version_id"`
	RevertedFromID    *string         `json:"reverted_from_id" db:"reverted_from_id"`
	ChangeDescription string          `json:"change_description" db:"change_description"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
