package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Manager bundles the Badger-backed storage implementations behind one
// connection lifecycle.
type Manager struct {
	db         *BadgerDB
	jobs       interfaces.JobRepository
	shadowTwin interfaces.ShadowTwinStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		jobs:       NewJobStorage(db, logger),
		shadowTwin: NewShadowTwinStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Jobs returns the job repository
func (m *Manager) Jobs() interfaces.JobRepository {
	return m.jobs
}

// ShadowTwins returns the shadow twin storage
func (m *Manager) ShadowTwins() interfaces.ShadowTwinStorage {
	return m.shadowTwin
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
