package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `---
title: Commoning vs. Kommerz
shortTitle: Commoning
summary: A comparison.
tags: [commons]
language: de
---

# Body
`

func TestHas(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"plain frontmatter", document, true},
		{"leading blank lines", "\n\n" + document, true},
		{"byte order mark prefix", "\ufeff" + document, true},
		{"windows line endings", "---\r\ntitle: x\r\n---\r\n", true},
		{"no frontmatter", "# Just a heading\n", false},
		{"delimiter mid-document", "# Heading\n\n---\n", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Has(tt.content))
		})
	}
}

func TestParse(t *testing.T) {
	meta, body, ok := Parse(document)
	require.True(t, ok)
	assert.Equal(t, "Commoning vs. Kommerz", meta["title"])
	assert.Equal(t, "# Body\n", body)
}

func TestParseWithByteOrderMark(t *testing.T) {
	meta, _, ok := Parse("\ufeff" + document)
	require.True(t, ok)
	assert.Equal(t, "Commoning", meta["shortTitle"])
}

func TestParseUnterminatedBlock(t *testing.T) {
	_, body, ok := Parse("---\ntitle: x\n")
	assert.False(t, ok)
	assert.Equal(t, "---\ntitle: x\n", body)
}

func TestComposeRoundTrip(t *testing.T) {
	meta := map[string]interface{}{"title": "T", "language": "de"}
	out, err := Compose(meta, "# Body\n")
	require.NoError(t, err)

	parsed, body, ok := Parse(out)
	require.True(t, ok)
	assert.Equal(t, "T", parsed["title"])
	assert.Equal(t, "# Body\n", body)
}

func TestMissingKeys(t *testing.T) {
	meta := map[string]interface{}{
		"title":    "T",
		"summary":  "  ",
		"tags":     []interface{}{},
		"language": "de",
	}
	missing := MissingKeys(meta)
	assert.ElementsMatch(t, []string{"shortTitle", "summary", "tags"}, missing)
	assert.False(t, Complete(meta))

	meta["shortTitle"] = "S"
	meta["summary"] = "Sum"
	meta["tags"] = []interface{}{"a"}
	assert.True(t, Complete(meta))
}
