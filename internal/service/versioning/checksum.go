package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"

	"inkwell/internal/config"
	models "inkwell/internal/domain/models/versioning"
	"inkwell/internal/utils"
)

// Checksum returns the hex-encoded SHA-256 fingerprint of a body. Every
// change-detection comparison in the engine runs on these fingerprints, so
// bodies are only loaded when a merge is actually needed.
func Checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// ByteSize returns the body size in bytes as recorded on a version.
func ByteSize(body string) int {
	return len(body)
}

// NormalizeMetadata builds the metadata snapshot for a new version. When the
// body carries YAML frontmatter, its title/category/tags win over the
// fallbacks; tags are sorted and de-duplicated so snapshots compare stably.
func NormalizeMetadata(body, fallbackTitle, fallbackCategory string, fallbackTags []string) models.VersionMetadata {
	meta := models.VersionMetadata{
		Title:    fallbackTitle,
		Category: fallbackCategory,
		Tags:     fallbackTags,
	}

	frontmatter, _, err := utils.ParseFrontmatter([]byte(body))
	if err != nil {
		// Malformed frontmatter is a content problem, not a versioning one
		slog.Debug("ignoring malformed frontmatter", "error", err)
	} else if frontmatter != nil {
		if title, ok := utils.StringField(frontmatter, "title"); ok {
			meta.Title = title
		}
		if category, ok := utils.StringField(frontmatter, "category"); ok {
			meta.Category = category
		}
		if tags := utils.StringSliceField(frontmatter, "tags"); tags != nil {
			meta.Tags = tags
		}
	}

	if runes := []rune(meta.Title); len(runes) > config.MaxTitleLength {
		meta.Title = string(runes[:config.MaxTitleLength])
	}
	meta.Tags = normalizeTags(meta.Tags)
	return meta
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
