// -----------------------------------------------------------------------
// Watchdog - Per-job idle timeout enforcement
// -----------------------------------------------------------------------

package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// TimeoutFunc is invoked exactly once when a job's timer fires without being
// bumped or cleared. It runs on a timer goroutine.
type TimeoutFunc func(jobID string, timeout time.Duration)

type entry struct {
	timer   *time.Timer
	timeout time.Duration
}

// Service implements Watchdog with one time.AfterFunc timer per job. The
// mutex makes fire, bump and clear mutually exclusive so a cleared timer can
// never fail a job that just reached a terminal state.
type Service struct {
	mu        sync.Mutex
	entries   map[string]*entry
	onTimeout TimeoutFunc
	logger    arbor.ILogger
	shutdown  bool
}

// NewService creates a watchdog that calls onTimeout when a job goes idle
func NewService(logger arbor.ILogger, onTimeout TimeoutFunc) *Service {
	return &Service{
		entries:   make(map[string]*entry),
		onTimeout: onTimeout,
		logger:    logger,
	}
}

var _ interfaces.Watchdog = (*Service)(nil)

func (s *Service) Start(ctx context.Context, jobID string, timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return
	}

	s.stopLocked(jobID)

	e := &entry{timeout: timeout}
	e.timer = time.AfterFunc(timeout, func() { s.fire(jobID, e) })
	s.entries[jobID] = e

	s.logger.Debug().
		Str("job_id", jobID).
		Dur("timeout", timeout).
		Msg("Watchdog armed")
}

func (s *Service) Bump(jobID string, timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[jobID]
	if !ok {
		return
	}
	if timeout > 0 {
		e.timeout = timeout
	}
	if !e.timer.Reset(e.timeout) {
		// The timer already fired; its callback is waiting on the mutex.
		// Replace the entry so the stale fire is discarded on identity.
		e.timer.Stop()
		fresh := &entry{timeout: e.timeout}
		fresh.timer = time.AfterFunc(fresh.timeout, func() { s.fire(jobID, fresh) })
		s.entries[jobID] = fresh
	}
}

func (s *Service) Clear(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(jobID)
}

func (s *Service) Active(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[jobID]
	return ok
}

func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for jobID := range s.entries {
		s.stopLocked(jobID)
	}
	s.shutdown = true
	s.logger.Debug().Msg("Watchdog shut down")
}

// fire runs on the timer goroutine. The identity check under the mutex makes
// firing, Bump and Clear mutually exclusive: a job cleared first never times
// out, and a fire that lost the race to a Bump is discarded.
func (s *Service) fire(jobID string, e *entry) {
	s.mu.Lock()
	current, ok := s.entries[jobID]
	if !ok || current != e {
		s.mu.Unlock()
		return
	}
	delete(s.entries, jobID)
	s.mu.Unlock()

	s.logger.Warn().
		Str("job_id", jobID).
		Dur("timeout", e.timeout).
		Msg("Watchdog timeout fired")

	if s.onTimeout != nil {
		s.onTimeout(jobID, e.timeout)
	}
}

func (s *Service) stopLocked(jobID string) {
	if e, ok := s.entries[jobID]; ok {
		e.timer.Stop()
		delete(s.entries, jobID)
	}
}
