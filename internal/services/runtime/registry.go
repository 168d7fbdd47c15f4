// -----------------------------------------------------------------------
// Runtime registry - In-memory per-job runtime state
// -----------------------------------------------------------------------

package runtime

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/events"
	"github.com/ternarybob/scribe/internal/services/watchdog"
)

// Registry owns every piece of in-memory job runtime state: watchdog timers,
// event bus subscriptions and per-job log buffers. Persistent job state lives
// in the repository; everything here is reconstructible and process-local.
type Registry struct {
	watchdog interfaces.Watchdog
	bus      interfaces.JobEventBus
	logger   arbor.ILogger

	mu      sync.Mutex
	buffers map[string][]models.JobLogEntry
}

// NewRegistry creates the registry. The timeout callback wires watchdog
// firings back into job processing.
func NewRegistry(logger arbor.ILogger, onTimeout watchdog.TimeoutFunc) *Registry {
	return &Registry{
		watchdog: watchdog.NewService(logger, onTimeout),
		bus:      events.NewBus(logger),
		logger:   logger,
		buffers:  make(map[string][]models.JobLogEntry),
	}
}

// Watchdog returns the per-job idle timeout service
func (r *Registry) Watchdog() interfaces.Watchdog {
	return r.watchdog
}

// EventBus returns the job update fan-out bus
func (r *Registry) EventBus() interfaces.JobEventBus {
	return r.bus
}

// BufferLog holds a log entry in memory until the next repository flush.
// Used by hot webhook paths to batch log writes on one job record update.
func (r *Registry) BufferLog(jobID string, entry models.JobLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers[jobID] = append(r.buffers[jobID], entry)
}

// DrainLogs returns and clears the buffered entries for a job
func (r *Registry) DrainLogs(jobID string) []models.JobLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.buffers[jobID]
	delete(r.buffers, jobID)
	return entries
}

// Release drops all runtime state for a job. Called when a job reaches a
// terminal status.
func (r *Registry) Release(jobID string) {
	r.watchdog.Clear(jobID)

	r.mu.Lock()
	delete(r.buffers, jobID)
	r.mu.Unlock()
}

// Shutdown stops timers and closes the bus
func (r *Registry) Shutdown() {
	r.watchdog.Shutdown()
	r.bus.Close()

	r.mu.Lock()
	r.buffers = make(map[string][]models.JobLogEntry)
	r.mu.Unlock()

	r.logger.Info().Msg("Job runtime registry shut down")
}
