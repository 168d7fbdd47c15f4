package transform

import (
	"strings"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// shortTitleMaxLen caps normalized short titles
const shortTitleMaxLen = 40

// shortTitleAliases maps misspelled worker keys onto the canonical one.
// Older worker builds emit these variants.
var shortTitleAliases = []string{"shortTitel", "shortTitlel"}

// NormalizeMeta canonicalizes raw structured metadata from the worker:
// short-title key variants collapse onto shortTitle, and the short title
// itself is trimmed of trailing punctuation and capped in length. Returns nil
// for empty input.
func NormalizeMeta(raw map[string]interface{}) interfaces.TransformMeta {
	if len(raw) == 0 {
		return nil
	}

	meta := make(interfaces.TransformMeta, len(raw))
	for k, v := range raw {
		meta[k] = v
	}

	for _, alias := range shortTitleAliases {
		if v, ok := meta[alias]; ok {
			if _, exists := meta["shortTitle"]; !exists {
				meta["shortTitle"] = v
			}
			delete(meta, alias)
		}
	}

	if v, ok := meta["shortTitle"].(string); ok {
		meta["shortTitle"] = normalizeShortTitle(v)
	}

	return meta
}

func normalizeShortTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,;:!?-")
	s = strings.TrimSpace(s)
	if len(s) > shortTitleMaxLen {
		s = strings.TrimSpace(s[:shortTitleMaxLen])
	}
	return s
}
