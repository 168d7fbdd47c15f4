package shadowtwin

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Resolver locates existing artifacts for filesystem-backed libraries.
// Lookup order: the shadow twin folder first, then the legacy layout where
// the artifact lives directly beside the source file.
type Resolver struct {
	provider interfaces.StorageProvider
	logger   arbor.ILogger
}

// NewResolver creates a resolver over a storage provider
func NewResolver(provider interfaces.StorageProvider, logger arbor.ILogger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   logger,
	}
}

// FindTranscript resolves the transcript artifact for a source file and
// target language. Returns (nil, nil) when none exists.
func (r *Resolver) FindTranscript(ctx context.Context, src interfaces.SourceRef, language string) (*interfaces.ArtifactRef, error) {
	expected := TranscriptFileName(src.Name, language)
	item, legacy, err := r.findByName(ctx, src, expected)
	if err != nil || item == nil {
		return nil, err
	}
	return &interfaces.ArtifactRef{
		ItemID:    item.ID,
		Name:      item.Name,
		Kind:      interfaces.ArtifactTranscript,
		Language:  language,
		UpdatedAt: item.UpdatedAt,
		Legacy:    legacy,
	}, nil
}

// FindTransformation resolves a transformation artifact. With template == ""
// the most recently updated transformation for the language wins.
func (r *Resolver) FindTransformation(ctx context.Context, src interfaces.SourceRef, language, template string) (*interfaces.ArtifactRef, error) {
	if template != "" {
		expected := TransformationFileName(src.Name, template, language)
		item, legacy, err := r.findByName(ctx, src, expected)
		if err != nil || item == nil {
			return nil, err
		}
		return &interfaces.ArtifactRef{
			ItemID:    item.ID,
			Name:      item.Name,
			Kind:      interfaces.ArtifactTransformation,
			Language:  language,
			Template:  TemplateBaseName(template),
			UpdatedAt: item.UpdatedAt,
			Legacy:    legacy,
		}, nil
	}

	// No template requested: scan both layouts for any transformation of
	// this language and keep the newest.
	var best *interfaces.ArtifactRef
	consider := func(items []interfaces.StorageItem, legacy bool) {
		for i := range items {
			item := &items[i]
			if item.IsFolder {
				continue
			}
			tpl := TemplateFromFileName(item.Name, src.Name, language)
			if tpl == "" {
				continue
			}
			if best == nil || item.UpdatedAt.After(best.UpdatedAt) {
				best = &interfaces.ArtifactRef{
					ItemID:    item.ID,
					Name:      item.Name,
					Kind:      interfaces.ArtifactTransformation,
					Language:  language,
					Template:  tpl,
					UpdatedAt: item.UpdatedAt,
					Legacy:    legacy,
				}
			}
		}
	}

	folderItems, siblings, err := r.listBothLayouts(ctx, src)
	if err != nil {
		return nil, err
	}
	consider(folderItems, false)
	if best == nil {
		consider(siblings, true)
	}
	return best, nil
}

// FindFolder returns the shadow twin folder item for a source, or nil
func (r *Resolver) FindFolder(ctx context.Context, src interfaces.SourceRef) (*interfaces.StorageItem, error) {
	siblings, err := r.provider.ListItemsByID(ctx, src.ParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list siblings of %s: %w", src.ItemID, err)
	}
	want := FolderName(src.Name)
	for i := range siblings {
		if siblings[i].IsFolder && siblings[i].Name == want {
			return &siblings[i], nil
		}
	}
	return nil, nil
}

// findByName looks for the exact artifact name inside the shadow twin folder
// first, then among direct siblings of the source (legacy layout).
func (r *Resolver) findByName(ctx context.Context, src interfaces.SourceRef, name string) (item *interfaces.StorageItem, legacy bool, err error) {
	folderItems, siblings, err := r.listBothLayouts(ctx, src)
	if err != nil {
		return nil, false, err
	}
	for i := range folderItems {
		if !folderItems[i].IsFolder && folderItems[i].Name == name {
			return &folderItems[i], false, nil
		}
	}
	for i := range siblings {
		if !siblings[i].IsFolder && siblings[i].Name == name {
			r.logger.Debug().
				Str("item", siblings[i].ID).
				Str("name", name).
				Msg("Artifact found in legacy sibling layout")
			return &siblings[i], true, nil
		}
	}
	return nil, false, nil
}

func (r *Resolver) listBothLayouts(ctx context.Context, src interfaces.SourceRef) (folderItems, siblings []interfaces.StorageItem, err error) {
	siblings, err = r.provider.ListItemsByID(ctx, src.ParentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list siblings of %s: %w", src.ItemID, err)
	}

	want := FolderName(src.Name)
	for i := range siblings {
		if siblings[i].IsFolder && siblings[i].Name == want {
			folderItems, err = r.provider.ListItemsByID(ctx, siblings[i].ID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to list shadow twin folder %s: %w", siblings[i].ID, err)
			}
			break
		}
	}
	return folderItems, siblings, nil
}
