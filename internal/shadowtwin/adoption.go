// -----------------------------------------------------------------------
// Legacy Adoption - Migrate pre-folder artifacts into the canonical layout
// -----------------------------------------------------------------------

package shadowtwin

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/services/frontmatter"
)

// Adopter moves legacy markdown artifacts (found directly beside the source
// file) into the shadow twin folder once the folder layout is in effect.
type Adopter struct {
	provider interfaces.StorageProvider
	logger   arbor.ILogger
}

// NewAdopter creates an adopter over a storage provider
func NewAdopter(provider interfaces.StorageProvider, logger arbor.ILogger) *Adopter {
	return &Adopter{
		provider: provider,
		logger:   logger,
	}
}

// AdoptLegacyMarkdown moves a legacy artifact into the shadow twin folder.
// When the legacy item IS the artifact already considered canonical
// (identical ids), it is treated as already adopted and nothing is deleted:
// deleting here would destroy the only copy.
func (a *Adopter) AdoptLegacyMarkdown(ctx context.Context, src interfaces.SourceRef, legacyID, existingArtifactID string) error {
	if legacyID == "" {
		return nil
	}
	if legacyID == existingArtifactID {
		a.logger.Debug().
			Str("item", legacyID).
			Msg("Legacy markdown is already the canonical artifact, skipping adoption")
		return nil
	}

	folder, err := a.provider.CreateFolder(ctx, src.ParentID, FolderName(src.Name))
	if err != nil {
		return fmt.Errorf("failed to ensure shadow twin folder for %s: %w", src.Name, err)
	}

	moved, err := a.provider.MoveItem(ctx, legacyID, folder.ID)
	if err != nil {
		return fmt.Errorf("failed to adopt legacy markdown %s: %w", legacyID, err)
	}

	a.logger.Info().
		Str("item", legacyID).
		Str("folder", folder.ID).
		Str("name", moved.Name).
		Msg("Legacy markdown adopted into shadow twin folder")

	return nil
}

// CleanupLegacySibling removes a superseded legacy artifact after a
// successful template run. Only files WITHOUT frontmatter are deleted: a
// sibling carrying frontmatter is the canonical transformed artifact, not
// the leftover. Delete failures are warnings, never job failures.
func (a *Adopter) CleanupLegacySibling(ctx context.Context, itemID string) {
	if itemID == "" {
		return
	}

	content, err := a.provider.GetBinary(ctx, itemID)
	if err != nil {
		a.logger.Warn().Err(err).Str("item", itemID).Msg("Failed to read legacy sibling for cleanup")
		return
	}

	if frontmatter.Has(string(content)) {
		a.logger.Debug().
			Str("item", itemID).
			Msg("Legacy sibling has frontmatter, keeping it")
		return
	}

	if err := a.provider.DeleteItem(ctx, itemID); err != nil {
		a.logger.Warn().Err(err).Str("item", itemID).Msg("Failed to delete superseded legacy sibling")
		return
	}

	a.logger.Debug().Str("item", itemID).Msg("Superseded legacy sibling removed")
}
