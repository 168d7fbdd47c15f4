package shadowtwin

import (
	"net/url"
	"strings"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// Virtual artifact ids let document-store artifacts be referenced like normal
// storage items by callers that only understand item identifiers. The string
// form is the stable wire contract; internally it is parsed into a typed
// VirtualArtifactRef immediately.

const (
	virtualIDPrefix    = "stw:"
	virtualIDSeparator = "|"
)

// VirtualArtifactRef is the decoded form of a virtual artifact id
type VirtualArtifactRef struct {
	LibraryID string
	SourceID  string
	Kind      interfaces.ArtifactKind
	Language  string
	Template  string // transformations only
}

// BuildVirtualArtifactID encodes the artifact coordinates into a single
// opaque token: percent-encoded segments joined by a private separator.
func BuildVirtualArtifactID(ref VirtualArtifactRef) string {
	segments := []string{
		url.QueryEscape(ref.LibraryID),
		url.QueryEscape(ref.SourceID),
		url.QueryEscape(string(ref.Kind)),
		url.QueryEscape(ref.Language),
	}
	if ref.Template != "" {
		segments = append(segments, url.QueryEscape(ref.Template))
	}
	return virtualIDPrefix + strings.Join(segments, virtualIDSeparator)
}

// ParseVirtualArtifactID is the exact inverse of BuildVirtualArtifactID.
// Tokens without the prefix, with fewer than 4 decoded segments, or with an
// undecodable segment parse to nil.
func ParseVirtualArtifactID(id string) *VirtualArtifactRef {
	if !strings.HasPrefix(id, virtualIDPrefix) {
		return nil
	}
	raw := strings.Split(id[len(virtualIDPrefix):], virtualIDSeparator)
	if len(raw) < 4 {
		return nil
	}

	decoded := make([]string, len(raw))
	for i, seg := range raw {
		val, err := url.QueryUnescape(seg)
		if err != nil {
			return nil
		}
		decoded[i] = val
	}

	ref := &VirtualArtifactRef{
		LibraryID: decoded[0],
		SourceID:  decoded[1],
		Kind:      interfaces.ArtifactKind(decoded[2]),
		Language:  decoded[3],
	}
	if len(decoded) > 4 {
		ref.Template = decoded[4]
	}
	return ref
}

// IsVirtualArtifactID reports whether an item id refers to a document-store
// artifact rather than a real storage item.
func IsVirtualArtifactID(id string) bool {
	return strings.HasPrefix(id, virtualIDPrefix)
}
