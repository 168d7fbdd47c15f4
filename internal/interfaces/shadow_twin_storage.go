package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// ShadowTwinStorage persists shadow twin documents for libraries whose
// artifacts live in the document store rather than the filesystem layout.
type ShadowTwinStorage interface {
	// GetBySource returns the document for (libraryID, sourceID), or
	// (nil, nil) when none exists yet.
	GetBySource(ctx context.Context, libraryID, sourceID string) (*models.ShadowTwinDocument, error)

	// Upsert writes the document keyed by (LibraryID, SourceID)
	Upsert(ctx context.Context, doc *models.ShadowTwinDocument) error

	// Delete removes the document. Only explicit user-triggered deletes call
	// this; the pipeline never deletes twins automatically.
	Delete(ctx context.Context, libraryID, sourceID string) error
}
