package versioning

import (
	"strings"
)

// Conflict marker delimiters. The rendering embeds all three variants so a
// reviewer can reconstruct base, ours and theirs unambiguously.
const (
	markerOurs   = "<<<<<<< ours (trunk)"
	markerBase   = "||||||| base"
	markerSplit  = "======="
	markerTheirs = ">>>>>>> theirs (branch)"
)

// MergeResult is the outcome of a three-way merge. A conflict is a normal
// outcome, not an error: Result is nil and ConflictMarkers carries the
// rendered representation.
type MergeResult struct {
	Result          *string `json:"result"`
	HasConflict     bool    `json:"has_conflict"`
	ConflictMarkers *string `json:"conflict_markers"`
}

// MergeService performs whole-document three-way merges. Content items are
// structured documents without stable line anchors across arbitrary edits,
// so merging operates on whole bodies rather than hunks.
type MergeService struct{}

// NewMergeService creates a new merge service
func NewMergeService() *MergeService {
	return &MergeService{}
}

// Merge merges two divergent bodies against their common ancestor.
//
// The three no-conflict identities are hard requirements:
// ours == base   -> theirs wins verbatim
// theirs == base -> ours wins verbatim (fast-forward)
// ours == theirs -> converged, either side
func (s *MergeService) Merge(base, ours, theirs string) MergeResult {
	switch {
	case ours == base:
		return cleanMerge(theirs)
	case theirs == base:
		return cleanMerge(ours)
	case ours == theirs:
		return cleanMerge(ours)
	}

	// Both sides diverged from base in different ways
	markers := RenderConflictMarkers(base, ours, theirs)
	return MergeResult{
		HasConflict:     true,
		ConflictMarkers: &markers,
	}
}

func cleanMerge(body string) MergeResult {
	return MergeResult{Result: &body}
}

// RenderConflictMarkers renders a diff3-style conflict block embedding all
// three variants in full. The rendering is presentational: a body without a
// trailing newline gains one so the delimiters stay on their own lines, which
// means "x" and "x\n" render identically. Consumers needing the exact bodies
// read them off the conflict record, which stores all three verbatim.
func RenderConflictMarkers(base, ours, theirs string) string {
	var b strings.Builder

	b.WriteString(markerOurs + "\n")
	writeBlock(&b, ours)
	b.WriteString(markerBase + "\n")
	writeBlock(&b, base)
	b.WriteString(markerSplit + "\n")
	writeBlock(&b, theirs)
	b.WriteString(markerTheirs + "\n")

	return b.String()
}

func writeBlock(b *strings.Builder, body string) {
	b.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
}
