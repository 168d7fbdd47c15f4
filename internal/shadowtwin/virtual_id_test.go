package shadowtwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/interfaces"
)

func TestVirtualArtifactIDRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		ref  VirtualArtifactRef
	}{
		{
			name: "transcript",
			ref: VirtualArtifactRef{
				LibraryID: "lib-1",
				SourceID:  "item-42",
				Kind:      interfaces.ArtifactTranscript,
				Language:  "de",
			},
		},
		{
			name: "transformation",
			ref: VirtualArtifactRef{
				LibraryID: "lib-1",
				SourceID:  "item-42",
				Kind:      interfaces.ArtifactTransformation,
				Language:  "en",
				Template:  "standard",
			},
		},
		{
			name: "segments containing the separator and unicode",
			ref: VirtualArtifactRef{
				LibraryID: "lib|one",
				SourceID:  "Commoning vs. Kommerz.pdf",
				Kind:      interfaces.ArtifactTransformation,
				Language:  "de",
				Template:  "zusammenfassung süß",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := BuildVirtualArtifactID(tt.ref)
			parsed := ParseVirtualArtifactID(id)
			require.NotNil(t, parsed)
			assert.Equal(t, tt.ref, *parsed)
		})
	}
}

func TestParseVirtualArtifactIDRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"missing prefix", "lib|src|transcript|de"},
		{"three segments", "stw:lib|src|transcript"},
		{"two segments", "stw:lib|src"},
		{"undecodable segment", "stw:lib|src|transcript|%zz"},
		{"regular item id", "item-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ParseVirtualArtifactID(tt.id))
		})
	}
}

func TestIsVirtualArtifactID(t *testing.T) {
	id := BuildVirtualArtifactID(VirtualArtifactRef{
		LibraryID: "lib", SourceID: "src", Kind: interfaces.ArtifactTranscript, Language: "de",
	})
	assert.True(t, IsVirtualArtifactID(id))
	assert.False(t, IsVirtualArtifactID("item-42"))
}

func TestVirtualArtifactIDDeterministic(t *testing.T) {
	ref := VirtualArtifactRef{
		LibraryID: "lib-1", SourceID: "item-42",
		Kind: interfaces.ArtifactTranscript, Language: "de",
	}
	assert.Equal(t, BuildVirtualArtifactID(ref), BuildVirtualArtifactID(ref))
}
