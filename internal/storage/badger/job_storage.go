package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobRepository interface for Badger. Mutating
// operations serialize through a mutex so read-modify-write cycles on a
// single job record cannot interleave.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobRepository {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

var _ interfaces.JobRepository = (*JobStorage)(nil)

func (s *JobStorage) Create(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("job already exists: %s", job.ID)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStorage) Get(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) List(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.LibraryID != "" {
			query = query.And("Correlation.LibraryID").Eq(opts.LibraryID)
		}
		if opts.UserEmail != "" {
			query = query.And("UserEmail").Eq(opts.UserEmail)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *JobStorage) UpdateStep(ctx context.Context, jobID string, step models.JobStep) error {
	return s.mutate(jobID, func(job *models.Job) error {
		for i := range job.Steps {
			if job.Steps[i].Name == step.Name {
				job.Steps[i] = step
				return nil
			}
		}
		job.Steps = append(job.Steps, step)
		return nil
	})
}

func (s *JobStorage) SetStatus(ctx context.Context, jobID string, status models.JobStatus, jobErr *models.JobError) error {
	return s.mutate(jobID, func(job *models.Job) error {
		if job.Status == status {
			return nil
		}
		if !job.Status.CanTransitionTo(status) {
			return fmt.Errorf("illegal job transition %s -> %s for %s", job.Status, status, jobID)
		}

		now := time.Now()
		switch status {
		case models.JobStatusRunning:
			if job.StartedAt == nil {
				job.StartedAt = &now
			}
		case models.JobStatusCompleted, models.JobStatusFailed:
			job.CompletedAt = &now
		case models.JobStatusQueued:
			// restart clears the previous run's outcome
			job.StartedAt = nil
			job.CompletedAt = nil
			job.Result = nil
			job.Error = nil
		}

		job.Status = status
		if jobErr != nil {
			job.Error = jobErr
		}
		return nil
	})
}

func (s *JobStorage) SetResult(ctx context.Context, jobID string, result *models.JobResult) error {
	return s.mutate(jobID, func(job *models.Job) error {
		job.Result = result
		return nil
	})
}

func (s *JobStorage) AppendLog(ctx context.Context, jobID string, entries ...models.JobLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.mutate(jobID, func(job *models.Job) error {
		job.Logs = append(job.Logs, entries...)
		return nil
	})
}

// ---- Trace spans ----
// Span bookkeeping is diagnostic only: failures log at warn and never
// propagate into job control flow.

func (s *JobStorage) TraceStartSpan(ctx context.Context, jobID, name string) string {
	spanID := uuid.New().String()
	err := s.mutate(jobID, func(job *models.Job) error {
		job.Trace = append(job.Trace, models.TraceSpan{
			ID:        spanID,
			Name:      name,
			StartedAt: time.Now(),
		})
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Str("span", name).Msg("Failed to start trace span")
		return ""
	}
	return spanID
}

func (s *JobStorage) TraceAddEvent(ctx context.Context, jobID, spanID, name string, attrs map[string]interface{}) {
	if spanID == "" {
		return
	}
	err := s.mutate(jobID, func(job *models.Job) error {
		span := findSpan(job, spanID)
		if span == nil {
			return fmt.Errorf("span not found: %s", spanID)
		}
		span.Events = append(span.Events, models.TraceEvent{
			Timestamp: time.Now(),
			Name:      name,
			Attrs:     attrs,
		})
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Str("event", name).Msg("Failed to add trace event")
	}
}

func (s *JobStorage) TraceEndSpan(ctx context.Context, jobID, spanID string) {
	if spanID == "" {
		return
	}
	err := s.mutate(jobID, func(job *models.Job) error {
		span := findSpan(job, spanID)
		if span == nil {
			return fmt.Errorf("span not found: %s", spanID)
		}
		now := time.Now()
		span.EndedAt = &now
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to end trace span")
	}
}

func findSpan(job *models.Job, spanID string) *models.TraceSpan {
	for i := range job.Trace {
		if job.Trace[i].ID == spanID {
			return &job.Trace[i]
		}
	}
	return nil
}

// mutate runs a read-modify-write cycle on one job under the storage mutex
func (s *JobStorage) mutate(jobID string, fn func(job *models.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, jobID)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	if err := fn(&job); err != nil {
		return err
	}

	if err := s.db.Store().Upsert(job.ID, &job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}
