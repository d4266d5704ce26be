package utils

import (
	"fmt"
	"regexp"
	"strings"

	"inkwell/internal/config"
)

var (
	slugRegex       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9]+`)
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// ValidateSlug validates a content item slug
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}

	if len(slug) > config.MaxSlugLength {
		return fmt.Errorf("slug exceeds maximum length of %d characters", config.MaxSlugLength)
	}

	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug must contain only lowercase letters, digits and single hyphens")
	}

	return nil
}

// Slugify converts a free-form title into a valid slug
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = repeatedHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > config.MaxSlugLength {
		slug = strings.Trim(slug[:config.MaxSlugLength], "-")
	}

	return slug
}
