package config

// Engine-wide limits. Bodies are documentation-scale text; the LCS diff is
// O(m*n) in line counts, so oversized inputs fall back to a whole-file
// replacement instead of grinding through the table, and manually merged
// bodies are size-checked at validation time.
const (
	MaxSlugLength        = 200
	MaxTitleLength       = 300
	MaxBodyBytes         = 2 * 1024 * 1024
	MaxDiffLines         = 20000
	MaxChangeDescription = 500
	MaxLogFiles          = 10
)
