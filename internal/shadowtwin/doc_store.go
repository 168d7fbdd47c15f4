package shadowtwin

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// DocStore implements ArtifactStore on top of the document database: all
// artifacts of a source live in one ShadowTwinDocument, and artifact
// references are virtual ids instead of storage item ids.
type DocStore struct {
	storage interfaces.ShadowTwinStorage
	logger  arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ArtifactStore = (*DocStore)(nil)

// NewDocStore creates a document-store-backed artifact store
func NewDocStore(storage interfaces.ShadowTwinStorage, logger arbor.ILogger) *DocStore {
	return &DocStore{
		storage: storage,
		logger:  logger,
	}
}

func (s *DocStore) FindTranscript(ctx context.Context, src interfaces.SourceRef, language string) (*interfaces.ArtifactRef, error) {
	doc, err := s.storage.GetBySource(ctx, src.LibraryID, src.ItemID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	rec, ok := doc.Transcript(language)
	if !ok {
		return nil, nil
	}
	return &interfaces.ArtifactRef{
		ItemID: BuildVirtualArtifactID(VirtualArtifactRef{
			LibraryID: src.LibraryID,
			SourceID:  src.ItemID,
			Kind:      interfaces.ArtifactTranscript,
			Language:  language,
		}),
		Name:      TranscriptFileName(src.Name, language),
		Kind:      interfaces.ArtifactTranscript,
		Language:  language,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *DocStore) FindTransformation(ctx context.Context, src interfaces.SourceRef, language, template string) (*interfaces.ArtifactRef, error) {
	doc, err := s.storage.GetBySource(ctx, src.LibraryID, src.ItemID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	tpl := TemplateBaseName(template)
	var rec models.ArtifactRecord
	var ok bool
	if tpl != "" {
		rec, ok = doc.Transformation(tpl, language)
	} else {
		tpl, rec, ok = doc.LatestTransformation(language)
	}
	if !ok {
		return nil, nil
	}

	return &interfaces.ArtifactRef{
		ItemID: BuildVirtualArtifactID(VirtualArtifactRef{
			LibraryID: src.LibraryID,
			SourceID:  src.ItemID,
			Kind:      interfaces.ArtifactTransformation,
			Language:  language,
			Template:  tpl,
		}),
		Name:      TransformationFileName(src.Name, tpl, language),
		Kind:      interfaces.ArtifactTransformation,
		Language:  language,
		Template:  tpl,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (s *DocStore) ReadMarkdown(ctx context.Context, ref *interfaces.ArtifactRef) (string, error) {
	vref := ParseVirtualArtifactID(ref.ItemID)
	if vref == nil {
		return "", fmt.Errorf("not a virtual artifact id: %s", ref.ItemID)
	}

	doc, err := s.storage.GetBySource(ctx, vref.LibraryID, vref.SourceID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", fmt.Errorf("shadow twin not found for source %s", vref.SourceID)
	}

	switch vref.Kind {
	case interfaces.ArtifactTranscript:
		rec, ok := doc.Transcript(vref.Language)
		if !ok {
			return "", fmt.Errorf("transcript %s not found for source %s", vref.Language, vref.SourceID)
		}
		return rec.Markdown, nil
	case interfaces.ArtifactTransformation:
		rec, ok := doc.Transformation(vref.Template, vref.Language)
		if !ok {
			return "", fmt.Errorf("transformation %s/%s not found for source %s", vref.Template, vref.Language, vref.SourceID)
		}
		return rec.Markdown, nil
	default:
		return "", fmt.Errorf("unknown artifact kind: %s", vref.Kind)
	}
}

func (s *DocStore) WriteTranscript(ctx context.Context, src interfaces.SourceRef, language, markdown string) (*interfaces.ArtifactRef, error) {
	doc, err := s.loadOrCreate(ctx, src)
	if err != nil {
		return nil, err
	}
	doc.UpsertTranscript(language, markdown)
	if err := s.storage.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to upsert shadow twin for %s: %w", src.ItemID, err)
	}
	return s.FindTranscript(ctx, src, language)
}

func (s *DocStore) WriteTransformation(ctx context.Context, src interfaces.SourceRef, language, template, markdown string) (*interfaces.ArtifactRef, error) {
	doc, err := s.loadOrCreate(ctx, src)
	if err != nil {
		return nil, err
	}
	doc.UpsertTransformation(TemplateBaseName(template), language, markdown)
	if err := s.storage.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to upsert shadow twin for %s: %w", src.ItemID, err)
	}
	return s.FindTransformation(ctx, src, language, template)
}

// loadOrCreate fetches the twin document or lazily starts a new one on first
// artifact write.
func (s *DocStore) loadOrCreate(ctx context.Context, src interfaces.SourceRef) (*models.ShadowTwinDocument, error) {
	doc, err := s.storage.GetBySource(ctx, src.LibraryID, src.ItemID)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return doc, nil
	}
	s.logger.Debug().
		Str("library", src.LibraryID).
		Str("source", src.ItemID).
		Msg("Creating shadow twin document on first artifact write")
	return &models.ShadowTwinDocument{
		ID:        common.NewTwinID(),
		LibraryID: src.LibraryID,
		SourceID:  src.ItemID,
	}, nil
}
