package utils

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseFrontmatter splits an optional YAML frontmatter block from a body.
// Expected format:
// ---
// title: Getting Started
// category: guides
// tags: [onboarding, setup]
// ---
// Body content here
//
// Bodies without a frontmatter block return (nil, body, nil): frontmatter is
// optional for content items, unlike import files.
func ParseFrontmatter(content []byte) (map[string]interface{}, string, error) {
	// Check for frontmatter delimiters
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return nil, string(content), nil
	}

	// Find the closing delimiter
	var closingDelim int
	lines := bytes.Split(content, []byte("\n"))

	// Skip the opening "---" line
	for i := 1; i < len(lines); i++ {
		line := bytes.TrimSpace(lines[i])
		if bytes.Equal(line, []byte("---")) {
			closingDelim = i
			break
		}
	}

	if closingDelim == 0 {
		// Unterminated block: treat the whole thing as body
		return nil, string(content), nil
	}

	// Extract YAML content (between the delimiters)
	yamlContent := bytes.Join(lines[1:closingDelim], []byte("\n"))

	// Parse YAML
	var metadata map[string]interface{}
	if err := yaml.Unmarshal(yamlContent, &metadata); err != nil {
		return nil, "", fmt.Errorf("parse YAML frontmatter: %w", err)
	}

	// Extract body content (everything after closing delimiter)
	bodyLines := lines[closingDelim+1:]
	body := string(bytes.Join(bodyLines, []byte("\n")))

	return metadata, body, nil
}

// StringField extracts a string value from parsed frontmatter; ok is false
// when the key is absent or not a string.
func StringField(metadata map[string]interface{}, key string) (string, bool) {
	if metadata == nil {
		return "", false
	}
	value, exists := metadata[key]
	if !exists {
		return "", false
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringSliceField extracts a string list from parsed frontmatter. YAML
// decodes lists as []interface{}; non-string elements are skipped.
func StringSliceField(metadata map[string]interface{}, key string) []string {
	if metadata == nil {
		return nil
	}
	value, exists := metadata[key]
	if !exists {
		return nil
	}
	raw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
