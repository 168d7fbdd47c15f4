package shadowtwin

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// FSStore implements ArtifactStore for filesystem-backed libraries: artifacts
// live inside the dotted shadow twin folder next to the source file.
type FSStore struct {
	provider interfaces.StorageProvider
	resolver *Resolver
	logger   arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ArtifactStore = (*FSStore)(nil)

// NewFSStore creates a filesystem-backed artifact store
func NewFSStore(provider interfaces.StorageProvider, logger arbor.ILogger) *FSStore {
	return &FSStore{
		provider: provider,
		resolver: NewResolver(provider, logger),
		logger:   logger,
	}
}

// Resolver exposes the underlying lookup for preprocessors and adoption
func (s *FSStore) Resolver() *Resolver {
	return s.resolver
}

func (s *FSStore) FindTranscript(ctx context.Context, src interfaces.SourceRef, language string) (*interfaces.ArtifactRef, error) {
	return s.resolver.FindTranscript(ctx, src, language)
}

func (s *FSStore) FindTransformation(ctx context.Context, src interfaces.SourceRef, language, template string) (*interfaces.ArtifactRef, error) {
	return s.resolver.FindTransformation(ctx, src, language, template)
}

func (s *FSStore) ReadMarkdown(ctx context.Context, ref *interfaces.ArtifactRef) (string, error) {
	data, err := s.provider.GetBinary(ctx, ref.ItemID)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact %s: %w", ref.ItemID, err)
	}
	return string(data), nil
}

func (s *FSStore) WriteTranscript(ctx context.Context, src interfaces.SourceRef, language, markdown string) (*interfaces.ArtifactRef, error) {
	name := TranscriptFileName(src.Name, language)
	item, err := s.writeToFolder(ctx, src, name, markdown)
	if err != nil {
		return nil, err
	}
	return &interfaces.ArtifactRef{
		ItemID:    item.ID,
		Name:      item.Name,
		Kind:      interfaces.ArtifactTranscript,
		Language:  language,
		UpdatedAt: item.UpdatedAt,
	}, nil
}

func (s *FSStore) WriteTransformation(ctx context.Context, src interfaces.SourceRef, language, template, markdown string) (*interfaces.ArtifactRef, error) {
	name := TransformationFileName(src.Name, template, language)
	item, err := s.writeToFolder(ctx, src, name, markdown)
	if err != nil {
		return nil, err
	}
	return &interfaces.ArtifactRef{
		ItemID:    item.ID,
		Name:      item.Name,
		Kind:      interfaces.ArtifactTransformation,
		Language:  language,
		Template:  TemplateBaseName(template),
		UpdatedAt: item.UpdatedAt,
	}, nil
}

// writeToFolder ensures the shadow twin folder exists and upserts the file.
// UploadFile replaces an existing file of the same name, which is what keeps
// artifact writes idempotent per coordinate.
func (s *FSStore) writeToFolder(ctx context.Context, src interfaces.SourceRef, name, markdown string) (*interfaces.StorageItem, error) {
	folder, err := s.provider.CreateFolder(ctx, src.ParentID, FolderName(src.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure shadow twin folder for %s: %w", src.Name, err)
	}

	item, err := s.provider.UploadFile(ctx, folder.ID, name, []byte(markdown))
	if err != nil {
		return nil, fmt.Errorf("failed to write artifact %s: %w", name, err)
	}

	s.logger.Debug().
		Str("library", src.LibraryID).
		Str("source", src.ItemID).
		Str("artifact", item.ID).
		Str("name", name).
		Msg("Artifact written to shadow twin folder")

	return item, nil
}
