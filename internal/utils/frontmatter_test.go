package utils

import (
	"reflect"
	"testing"
)

func TestParseFrontmatter(t *testing.T) {
	content := "---\ntitle: Getting Started\ncategory: guides\ntags: [onboarding, setup]\n---\nBody line one.\nBody line two."

	metadata, body, err := ParseFrontmatter([]byte(content))
	if err != nil {
		t.Fatal(err)
	}

	if title, ok := StringField(metadata, "title"); !ok || title != "Getting Started" {
		t.Errorf("title = %q (ok=%v)", title, ok)
	}
	if category, ok := StringField(metadata, "category"); !ok || category != "guides" {
		t.Errorf("category = %q (ok=%v)", category, ok)
	}
	if tags := StringSliceField(metadata, "tags"); !reflect.DeepEqual(tags, []string{"onboarding", "setup"}) {
		t.Errorf("tags = %v", tags)
	}
	if body != "Body line one.\nBody line two." {
		t.Errorf("body = %q", body)
	}
}

func TestParseFrontmatterOptional(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "Just a plain body."},
		{"unterminated block", "---\ntitle: Oops\nno closing delimiter"},
		{"empty content", ""},
		{"delimiter mid-body", "First line\n---\nnot frontmatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata, body, err := ParseFrontmatter([]byte(tt.content))
			if err != nil {
				t.Fatal(err)
			}
			if metadata != nil {
				t.Errorf("metadata = %v, want nil", metadata)
			}
			if body != tt.content {
				t.Errorf("body = %q, want the input verbatim", body)
			}
		})
	}
}

func TestParseFrontmatterMalformedYAML(t *testing.T) {
	_, _, err := ParseFrontmatter([]byte("---\ntitle: [unclosed\n---\nbody"))
	if err == nil {
		t.Error("malformed YAML inside a proper block should error")
	}
}

func TestStringFieldTypeSafety(t *testing.T) {
	metadata := map[string]interface{}{
		"title": "ok",
		"count": 3,
		"empty": "",
	}

	if _, ok := StringField(metadata, "count"); ok {
		t.Error("non-string value should not extract")
	}
	if _, ok := StringField(metadata, "empty"); ok {
		t.Error("empty string should not extract")
	}
	if _, ok := StringField(metadata, "missing"); ok {
		t.Error("absent key should not extract")
	}
	if _, ok := StringField(nil, "title"); ok {
		t.Error("nil metadata should not extract")
	}
}

func TestStringSliceFieldSkipsNonStrings(t *testing.T) {
	metadata := map[string]interface{}{
		"tags":   []interface{}{"a", 7, "", "b"},
		"scalar": "not-a-list",
	}

	if tags := StringSliceField(metadata, "tags"); !reflect.DeepEqual(tags, []string{"a", "b"}) {
		t.Errorf("tags = %v, want [a b]", tags)
	}
	if tags := StringSliceField(metadata, "scalar"); tags != nil {
		t.Errorf("scalar value should yield nil, got %v", tags)
	}
}
