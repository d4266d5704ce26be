package versioning

import (
	"strings"

	"inkwell/internal/config"
)

// LineKind classifies one line of a diff.
type LineKind string

const (
	LineContext  LineKind = "context"
	LineAddition LineKind = "addition"
	LineDeletion LineKind = "deletion"
)

// DiffLine is a single classified line. OldLine/NewLine are 1-based positions
// in the respective sequences; 0 means the line does not exist on that side.
type DiffLine struct {
	Kind    LineKind `json:"kind"`
	Text    string   `json:"text"`
	OldLine int      `json:"old_line,omitempty"`
	NewLine int      `json:"new_line,omitempty"`
}

// DiffHunk is a contiguous run of diff lines. All file-level diffs currently
// aggregate into one hunk; line numbering and counts stay exact either way.
type DiffHunk struct {
	OldStart int        `json:"old_start"`
	OldCount int        `json:"old_count"`
	NewStart int        `json:"new_start"`
	NewCount int        `json:"new_count"`
	Lines    []DiffLine `json:"lines"`
}

// DiffResult is the outcome of a line diff.
type DiffResult struct {
	Hunks     []DiffHunk `json:"hunks"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// DiffService computes line-level differences via longest common subsequence.
type DiffService struct{}

// NewDiffService creates a new diff service
func NewDiffService() *DiffService {
	return &DiffService{}
}

// SplitLines splits a body into diffable lines. An empty body has zero lines.
func SplitLines(body string) []string {
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n")
}

// Diff computes the line diff between two sequences. Lines on the LCS are
// context; new-side lines off the LCS are additions, old-side ones deletions.
func (s *DiffService) Diff(oldLines, newLines []string) *DiffResult {
	// Whole-file add/delete: skip the O(m*n) table entirely
	if len(oldLines) == 0 || len(newLines) == 0 {
		return s.syntheticDiff(oldLines, newLines)
	}

	// Past the line budget the table is too expensive; degrade to a
	// whole-file replacement, which stays lossless
	if len(oldLines)+len(newLines) > config.MaxDiffLines {
		return s.syntheticDiff(oldLines, newLines)
	}

	lines := backtrace(oldLines, newLines, lcsTable(oldLines, newLines))

	result := &DiffResult{}
	for _, line := range lines {
		switch line.Kind {
		case LineAddition:
			result.Additions++
		case LineDeletion:
			result.Deletions++
		}
	}

	result.Hunks = []DiffHunk{{
		OldStart: 1,
		OldCount: len(oldLines),
		NewStart: 1,
		NewCount: len(newLines),
		Lines:    lines,
	}}

	return result
}

// DiffBodies is a convenience wrapper over Diff for whole-body strings.
func (s *DiffService) DiffBodies(oldBody, newBody string) *DiffResult {
	return s.Diff(SplitLines(oldBody), SplitLines(newBody))
}

// syntheticDiff emits one hunk treating the whole old side as deleted and the
// whole new side as added. Covers full adds, full deletes, and the oversized
// fallback.
func (s *DiffService) syntheticDiff(oldLines, newLines []string) *DiffResult {
	result := &DiffResult{}
	hunk := DiffHunk{
		OldCount: len(oldLines),
		NewCount: len(newLines),
	}

	if len(oldLines) > 0 {
		hunk.OldStart = 1
	}
	if len(newLines) > 0 {
		hunk.NewStart = 1
	}

	for i, text := range oldLines {
		hunk.Lines = append(hunk.Lines, DiffLine{Kind: LineDeletion, Text: text, OldLine: i + 1})
		result.Deletions++
	}
	for i, text := range newLines {
		hunk.Lines = append(hunk.Lines, DiffLine{Kind: LineAddition, Text: text, NewLine: i + 1})
		result.Additions++
	}

	if len(hunk.Lines) == 0 {
		// Both sides empty: no hunks at all
		return result
	}

	result.Hunks = []DiffHunk{hunk}
	return result
}

// lcsTable fills the (m+1)x(n+1) dynamic-programming table where
// table[i][j] is the LCS length of oldLines[:i] and newLines[:j].
func lcsTable(oldLines, newLines []string) [][]int {
	m, n := len(oldLines), len(newLines)
	table := make([][]int, m+1)
	for i := range table {
		table[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if oldLines[i-1] == newLines[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}

	return table
}

// backtrace walks the table from (m,n) to (0,0), emitting classified lines
// in reverse, then restores order and assigns line numbers.
func backtrace(oldLines, newLines []string, table [][]int) []DiffLine {
	var reversed []DiffLine
	i, j := len(oldLines), len(newLines)

	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && oldLines[i-1] == newLines[j-1]:
			reversed = append(reversed, DiffLine{Kind: LineContext, Text: oldLines[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			reversed = append(reversed, DiffLine{Kind: LineAddition, Text: newLines[j-1]})
			j--
		default:
			reversed = append(reversed, DiffLine{Kind: LineDeletion, Text: oldLines[i-1]})
			i--
		}
	}

	lines := make([]DiffLine, 0, len(reversed))
	oldLine, newLine := 0, 0
	for k := len(reversed) - 1; k >= 0; k-- {
		line := reversed[k]
		switch line.Kind {
		case LineContext:
			oldLine++
			newLine++
			line.OldLine = oldLine
			line.NewLine = newLine
		case LineAddition:
			newLine++
			line.NewLine = newLine
		case LineDeletion:
			oldLine++
			line.OldLine = oldLine
		}
		lines = append(lines, line)
	}

	return lines
}
