// -----------------------------------------------------------------------
// Scheduler - Background maintenance sweeps over the job store
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/runtime"
)

// Service runs periodic maintenance over the job store: recovering jobs
// orphaned by a restart (running in the store but with no live watchdog
// timer) and pruning terminal jobs past the retention window.
type Service struct {
	config   common.SchedulerConfig
	timeout  time.Duration // watchdog idle timeout, reused as the orphan grace period
	repo     interfaces.JobRepository
	registry *runtime.Registry
	cron     *cron.Cron
	logger   arbor.ILogger
	mu       sync.Mutex // prevents overlapping sweeps
	running  bool
}

func NewService(config common.SchedulerConfig, timeout time.Duration, repo interfaces.JobRepository, registry *runtime.Registry, logger arbor.ILogger) *Service {
	return &Service{
		config:   config,
		timeout:  timeout,
		repo:     repo,
		registry: registry,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the sweep on the configured schedule and begins the cron
// loop. An orphan sweep also runs immediately so jobs stranded by the
// previous process do not wait a full cycle.
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled by configuration")
		return nil
	}

	schedule := s.config.SweepSchedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return fmt.Errorf("failed to add sweep to cron: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Int("retention_days", s.config.RetentionDays).
		Msg("Scheduler started")

	go s.runSweep()

	return nil
}

// Stop halts the cron loop and waits for an in-flight sweep to finish.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) runSweep() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Panic recovered in maintenance sweep")
		}
	}()

	if !s.mu.TryLock() {
		s.logger.Debug().Msg("Sweep already in progress, skipping cycle")
		return
	}
	defer s.mu.Unlock()

	ctx := context.Background()

	if err := s.RecoverOrphanedJobs(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Orphaned job recovery failed")
	}
	if err := s.PruneExpiredJobs(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Retention pruning failed")
	}
}

// RecoverOrphanedJobs fails non-terminal jobs that have no live watchdog
// timer. After a restart the store can hold running jobs whose timers died
// with the old process; without this sweep they would hang forever.
func (s *Service) RecoverOrphanedJobs(ctx context.Context) error {
	recovered := 0
	for _, status := range []models.JobStatus{models.JobStatusRunning, models.JobStatusPendingStorage} {
		jobs, err := s.repo.List(ctx, &interfaces.JobListOptions{Status: status})
		if err != nil {
			return fmt.Errorf("failed to list %s jobs: %w", status, err)
		}

		for _, job := range jobs {
			if s.registry.Watchdog().Active(job.ID) {
				continue
			}
			// Grace period: a job that just transitioned may not have armed
			// its timer yet.
			if job.StartedAt != nil && time.Since(*job.StartedAt) < s.timeout {
				continue
			}

			jobErr := &models.JobError{
				Code:    "orphaned",
				Message: "job had no live watchdog timer, likely stranded by a restart",
			}
			if err := s.repo.SetStatus(ctx, job.ID, models.JobStatusFailed, jobErr); err != nil {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to fail orphaned job")
				continue
			}
			s.appendLog(ctx, job.ID, "job failed by maintenance sweep: no live watchdog timer")
			s.registry.Release(job.ID)
			recovered++

			s.logger.Warn().
				Str("job_id", job.ID).
				Str("status", string(status)).
				Msg("Recovered orphaned job")
		}
	}

	if recovered > 0 {
		s.logger.Info().Int("count", recovered).Msg("Orphaned jobs recovered")
	}
	return nil
}

// PruneExpiredJobs deletes terminal jobs older than the retention window.
// RetentionDays <= 0 disables pruning.
func (s *Service) PruneExpiredJobs(ctx context.Context) error {
	if s.config.RetentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)

	pruned := 0
	for _, status := range []models.JobStatus{models.JobStatusCompleted, models.JobStatusFailed} {
		jobs, err := s.repo.List(ctx, &interfaces.JobListOptions{Status: status})
		if err != nil {
			return fmt.Errorf("failed to list %s jobs: %w", status, err)
		}

		for _, job := range jobs {
			finished := job.CompletedAt
			if finished == nil {
				// Terminal without a completion timestamp; fall back to creation
				finished = &job.CreatedAt
			}
			if finished.After(cutoff) {
				continue
			}
			if err := s.repo.Delete(ctx, job.ID); err != nil {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to prune expired job")
				continue
			}
			pruned++
		}
	}

	if pruned > 0 {
		s.logger.Info().
			Int("count", pruned).
			Int("retention_days", s.config.RetentionDays).
			Msg("Expired jobs pruned")
	}
	return nil
}

func (s *Service) appendLog(ctx context.Context, jobID, message string) {
	entry := models.JobLogEntry{
		Timestamp: time.Now(),
		Level:     "error",
		Message:   message,
	}
	if err := s.repo.AppendLog(ctx, jobID, entry); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to append job log")
	}
}
