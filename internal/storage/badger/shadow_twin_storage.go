package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ShadowTwinStorage implements the ShadowTwinStorage interface for Badger
type ShadowTwinStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewShadowTwinStorage creates a new ShadowTwinStorage instance
func NewShadowTwinStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ShadowTwinStorage {
	return &ShadowTwinStorage{
		db:     db,
		logger: logger,
	}
}

var _ interfaces.ShadowTwinStorage = (*ShadowTwinStorage)(nil)

func (s *ShadowTwinStorage) GetBySource(ctx context.Context, libraryID, sourceID string) (*models.ShadowTwinDocument, error) {
	var docs []models.ShadowTwinDocument
	query := badgerhold.Where("LibraryID").Eq(libraryID).Index("LibraryID").
		And("SourceID").Eq(sourceID)
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to query shadow twin: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) > 1 {
		s.logger.Warn().
			Str("library_id", libraryID).
			Str("source_id", sourceID).
			Int("count", len(docs)).
			Msg("Multiple shadow twins for one source, using first")
	}
	return &docs[0], nil
}

func (s *ShadowTwinStorage) Upsert(ctx context.Context, doc *models.ShadowTwinDocument) error {
	if doc.LibraryID == "" || doc.SourceID == "" {
		return fmt.Errorf("shadow twin requires library and source ids")
	}
	if doc.ID == "" {
		doc.ID = common.NewTwinID()
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save shadow twin: %w", err)
	}
	return nil
}

func (s *ShadowTwinStorage) Delete(ctx context.Context, libraryID, sourceID string) error {
	doc, err := s.GetBySource(ctx, libraryID, sourceID)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	if err := s.db.Store().Delete(doc.ID, &models.ShadowTwinDocument{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete shadow twin: %w", err)
	}
	return nil
}
