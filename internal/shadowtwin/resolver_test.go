package shadowtwin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

func testSource(p *memProvider) (interfaces.SourceRef, *interfaces.StorageItem) {
	src := p.addFile("folder-1", "Commoning vs. Kommerz.pdf", []byte("%PDF"))
	return interfaces.SourceRef{
		LibraryID: "lib-1",
		ItemID:    src.ID,
		ParentID:  "folder-1",
		Name:      src.Name,
	}, src
}

func TestResolverFindsTranscriptInShadowFolder(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	folder := p.addFolder("folder-1", ".Commoning vs. Kommerz.pdf")
	artifact := p.addFile(folder.ID, "Commoning vs. Kommerz.de.md", []byte("# transcript"))

	r := NewResolver(p, arbor.NewLogger())
	ref, err := r.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, artifact.ID, ref.ItemID)
	assert.Equal(t, "Commoning vs. Kommerz.de.md", ref.Name)
	assert.False(t, ref.Legacy)
}

func TestResolverFallsBackToLegacySibling(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	legacy := p.addFile("folder-1", "Commoning vs. Kommerz.de.md", []byte("# transcript"))

	r := NewResolver(p, arbor.NewLogger())
	ref, err := r.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, legacy.ID, ref.ItemID)
	assert.True(t, ref.Legacy)
}

func TestResolverPrefersShadowFolderOverLegacy(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	p.addFile("folder-1", "Commoning vs. Kommerz.de.md", []byte("legacy"))
	folder := p.addFolder("folder-1", ".Commoning vs. Kommerz.pdf")
	canonical := p.addFile(folder.ID, "Commoning vs. Kommerz.de.md", []byte("canonical"))

	r := NewResolver(p, arbor.NewLogger())
	ref, err := r.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, canonical.ID, ref.ItemID)
	assert.False(t, ref.Legacy)
}

func TestResolverNotFound(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)

	r := NewResolver(p, arbor.NewLogger())
	ref, err := r.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestResolverIsDeterministic(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	folder := p.addFolder("folder-1", ".Commoning vs. Kommerz.pdf")
	p.addFile(folder.ID, "Commoning vs. Kommerz.de.md", []byte("# transcript"))

	r := NewResolver(p, arbor.NewLogger())
	first, err := r.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	second, err := r.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolverFindTransformationByTemplate(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	folder := p.addFolder("folder-1", ".Commoning vs. Kommerz.pdf")
	artifact := p.addFile(folder.ID, "Commoning vs. Kommerz.standard.de.md", []byte("---\ntitle: x\n---\nbody"))

	r := NewResolver(p, arbor.NewLogger())
	ref, err := r.FindTransformation(context.Background(), src, "de", "standard.md")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, artifact.ID, ref.ItemID)
	assert.Equal(t, "standard", ref.Template)
}

func TestResolverFindTransformationNewestWinsWithoutTemplate(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)
	folder := p.addFolder("folder-1", ".Commoning vs. Kommerz.pdf")
	p.addFile(folder.ID, "Commoning vs. Kommerz.standard.de.md", []byte("older"))
	newest := p.addFile(folder.ID, "Commoning vs. Kommerz.summary.de.md", []byte("newer"))

	r := NewResolver(p, arbor.NewLogger())
	ref, err := r.FindTransformation(context.Background(), src, "de", "")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, newest.ID, ref.ItemID)
	assert.Equal(t, "summary", ref.Template)
}

func TestFSStoreWriteThenFindRoundtrip(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)

	store := NewFSStore(p, arbor.NewLogger())
	written, err := store.WriteTranscript(context.Background(), src, "de", "# transcript")
	require.NoError(t, err)
	assert.Equal(t, "Commoning vs. Kommerz.de.md", written.Name)

	found, err := store.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, written.ItemID, found.ItemID)

	content, err := store.ReadMarkdown(context.Background(), found)
	require.NoError(t, err)
	assert.Equal(t, "# transcript", content)
}

func TestFSStoreWriteIsUpsert(t *testing.T) {
	p := newMemProvider()
	src, _ := testSource(p)

	store := NewFSStore(p, arbor.NewLogger())
	first, err := store.WriteTranscript(context.Background(), src, "de", "v1")
	require.NoError(t, err)
	second, err := store.WriteTranscript(context.Background(), src, "de", "v2")
	require.NoError(t, err)

	// Same coordinates, same item: never duplicated
	assert.Equal(t, first.ItemID, second.ItemID)

	content, err := store.ReadMarkdown(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, "v2", content)
}
