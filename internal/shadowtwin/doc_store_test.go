package shadowtwin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// memTwinStorage is an in-memory ShadowTwinStorage for tests
type memTwinStorage struct {
	docs map[string]*models.ShadowTwinDocument
}

func newMemTwinStorage() *memTwinStorage {
	return &memTwinStorage{docs: make(map[string]*models.ShadowTwinDocument)}
}

func (s *memTwinStorage) key(libraryID, sourceID string) string {
	return libraryID + "/" + sourceID
}

func (s *memTwinStorage) GetBySource(_ context.Context, libraryID, sourceID string) (*models.ShadowTwinDocument, error) {
	doc, ok := s.docs[s.key(libraryID, sourceID)]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (s *memTwinStorage) Upsert(_ context.Context, doc *models.ShadowTwinDocument) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	copied := *doc
	s.docs[s.key(doc.LibraryID, doc.SourceID)] = &copied
	return nil
}

func (s *memTwinStorage) Delete(_ context.Context, libraryID, sourceID string) error {
	delete(s.docs, s.key(libraryID, sourceID))
	return nil
}

func docSource() interfaces.SourceRef {
	return interfaces.SourceRef{
		LibraryID: "lib-1",
		ItemID:    "item-42",
		ParentID:  "folder-1",
		Name:      "talk.mp3",
	}
}

func TestDocStoreWriteThenFindTranscript(t *testing.T) {
	store := NewDocStore(newMemTwinStorage(), arbor.NewLogger())
	src := docSource()

	written, err := store.WriteTranscript(context.Background(), src, "de", "# transcript")
	require.NoError(t, err)
	require.NotNil(t, written)
	assert.True(t, IsVirtualArtifactID(written.ItemID))
	assert.Equal(t, "talk.de.md", written.Name)

	found, err := store.FindTranscript(context.Background(), src, "de")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, written.ItemID, found.ItemID)

	content, err := store.ReadMarkdown(context.Background(), found)
	require.NoError(t, err)
	assert.Equal(t, "# transcript", content)
}

func TestDocStoreFindMissingReturnsNil(t *testing.T) {
	store := NewDocStore(newMemTwinStorage(), arbor.NewLogger())

	ref, err := store.FindTranscript(context.Background(), docSource(), "de")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestDocStoreTransformationUpsertKeepsOnePerCoordinate(t *testing.T) {
	storage := newMemTwinStorage()
	store := NewDocStore(storage, arbor.NewLogger())
	src := docSource()

	_, err := store.WriteTransformation(context.Background(), src, "de", "standard", "v1")
	require.NoError(t, err)
	_, err = store.WriteTransformation(context.Background(), src, "de", "standard", "v2")
	require.NoError(t, err)

	doc, err := storage.GetBySource(context.Background(), src.LibraryID, src.ItemID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Len(t, doc.Transformations["standard"], 1)

	rec, ok := doc.Transformation("standard", "de")
	require.True(t, ok)
	assert.Equal(t, "v2", rec.Markdown)
	assert.True(t, rec.UpdatedAt.After(rec.CreatedAt) || rec.UpdatedAt.Equal(rec.CreatedAt))
}

func TestDocStoreLatestTransformationWinsAcrossTemplates(t *testing.T) {
	store := NewDocStore(newMemTwinStorage(), arbor.NewLogger())
	src := docSource()

	_, err := store.WriteTransformation(context.Background(), src, "de", "standard", "older")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = store.WriteTransformation(context.Background(), src, "de", "summary", "newer")
	require.NoError(t, err)

	ref, err := store.FindTransformation(context.Background(), src, "de", "")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "summary", ref.Template)

	content, err := store.ReadMarkdown(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "newer", content)
}
