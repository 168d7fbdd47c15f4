package shadowtwin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestAdoptLegacyMarkdownMovesIntoFolder(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	legacy := p.addFile("folder-1", "Commoning vs. Kommerz.de.md", []byte("# transcript"))

	a := NewAdopter(p, arbor.NewLogger())
	err := a.AdoptLegacyMarkdown(context.Background(), src, legacy.ID, "some-other-artifact")
	require.NoError(t, err)

	moved, err := p.GetItemByID(context.Background(), legacy.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "folder-1", moved.ParentID, "legacy file should live inside the shadow twin folder now")
	assert.Empty(t, p.deleted)
}

func TestAdoptLegacyMarkdownNeverDeletesTheOnlyCopy(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	legacy := p.addFile("folder-1", "Commoning vs. Kommerz.de.md", []byte("# transcript"))

	a := NewAdopter(p, arbor.NewLogger())

	// The legacy item IS the canonical artifact: adoption must be a no-op
	// and must not call delete.
	err := a.AdoptLegacyMarkdown(context.Background(), src, legacy.ID, legacy.ID)
	require.NoError(t, err)

	still, err := p.GetItemByID(context.Background(), legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "folder-1", still.ParentID, "file must stay untouched")
	assert.Empty(t, p.deleted, "delete must never be called for identical ids")
}

func TestCleanupLegacySiblingDeletesOnlyWithoutFrontmatter(t *testing.T) {
	p := newMemProvider()

	plain := p.addFile("folder-1", "old.de.md", []byte("# plain transcript\nno frontmatter"))
	withFM := p.addFile("folder-1", "canonical.de.md", []byte("---\ntitle: Keep me\n---\nbody"))

	a := NewAdopter(p, arbor.NewLogger())
	a.CleanupLegacySibling(context.Background(), plain.ID)
	a.CleanupLegacySibling(context.Background(), withFM.ID)

	assert.Contains(t, p.deleted, plain.ID)

	kept, err := p.GetItemByID(context.Background(), withFM.ID)
	require.NoError(t, err)
	assert.Equal(t, withFM.ID, kept.ID, "artifact with frontmatter must never be cleaned up")
}

func TestCleanupLegacySiblingDeleteFailureIsNonFatal(t *testing.T) {
	p := newMemProvider()
	plain := p.addFile("folder-1", "old.de.md", []byte("no frontmatter"))
	p.failDelete = true

	a := NewAdopter(p, arbor.NewLogger())
	// Must not panic or propagate the error
	a.CleanupLegacySibling(context.Background(), plain.ID)

	still, err := p.GetItemByID(context.Background(), plain.ID)
	require.NoError(t, err)
	assert.Equal(t, plain.ID, still.ID)
}
