// Package frontmatter parses and composes the YAML metadata header embedded
// at the top of markdown artifacts.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// RequiredKeys are the structured-metadata keys a transformation artifact
// must carry for its frontmatter to count as complete.
var RequiredKeys = []string{"title", "shortTitle", "summary", "tags", "language"}

// Has reports whether the markdown content starts with a frontmatter block
func Has(content string) bool {
	trimmed := strings.TrimLeft(content, "\uFEFF\n\r ")
	return strings.HasPrefix(trimmed, delimiter+"\n") || strings.HasPrefix(trimmed, delimiter+"\r\n")
}

// Parse splits markdown into its frontmatter map and body. Returns ok=false
// when no frontmatter block is present or the YAML does not parse.
func Parse(content string) (meta map[string]interface{}, body string, ok bool) {
	if !Has(content) {
		return nil, content, false
	}

	trimmed := strings.TrimLeft(content, "\uFEFF\n\r ")
	rest := trimmed[len(delimiter):]
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	idx := findClosingDelimiter(rest)
	if idx < 0 {
		return nil, content, false
	}

	block := rest[:idx]
	body = strings.TrimPrefix(rest[idx:], delimiter)
	body = strings.TrimPrefix(body, "\r\n")
	body = strings.TrimPrefix(body, "\n")

	meta = make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, content, false
	}
	return meta, body, true
}

// Compose renders a markdown document with the given frontmatter map
func Compose(meta map[string]interface{}, body string) (string, error) {
	out, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteString("\n")
	b.Write(out)
	b.WriteString(delimiter)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimLeft(body, "\n"))
	return b.String(), nil
}

// Complete reports whether every required key is present and non-empty.
// "Frontmatter exists but is incomplete" gates identically to "does not
// exist", which is what makes repair runs possible.
func Complete(meta map[string]interface{}) bool {
	return len(MissingKeys(meta)) == 0
}

// MissingKeys returns the required keys absent or empty in the map
func MissingKeys(meta map[string]interface{}) []string {
	var missing []string
	for _, key := range RequiredKeys {
		if meta == nil || isEmptyValue(meta[key]) {
			missing = append(missing, key)
		}
	}
	return missing
}

func isEmptyValue(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}

func findClosingDelimiter(s string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], "\n"+delimiter)
		if idx < 0 {
			return -1
		}
		pos := offset + idx + 1
		tail := s[pos+len(delimiter):]
		if tail == "" || strings.HasPrefix(tail, "\n") || strings.HasPrefix(tail, "\r\n") {
			return pos
		}
		offset = pos
	}
}
