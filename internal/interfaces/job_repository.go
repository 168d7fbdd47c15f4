package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/scribe/internal/models"
)

// ErrJobNotFound is returned when no job record exists for the given id
var ErrJobNotFound = errors.New("job not found")

// JobRepository persists job records. The job record is always read then
// written per handler invocation; implementations must not cache across
// requests.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, jobID string) (*models.Job, error)
	List(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	Delete(ctx context.Context, jobID string) error

	// UpdateStep upserts the named step record on the job
	UpdateStep(ctx context.Context, jobID string, step models.JobStep) error

	// SetStatus transitions the job status; implementations reject illegal
	// transitions per models.JobStatus.CanTransitionTo
	SetStatus(ctx context.Context, jobID string, status models.JobStatus, jobErr *models.JobError) error

	SetResult(ctx context.Context, jobID string, result *models.JobResult) error

	// AppendLog appends entries to the job's append-only log. Allowed even
	// after the job reaches a terminal status.
	AppendLog(ctx context.Context, jobID string, entries ...models.JobLogEntry) error

	// Trace span bookkeeping. Failures are logged at warn level by
	// implementations and never propagate into job control flow.
	TraceStartSpan(ctx context.Context, jobID, name string) (spanID string)
	TraceAddEvent(ctx context.Context, jobID, spanID, name string, attrs map[string]interface{})
	TraceEndSpan(ctx context.Context, jobID, spanID string)
}

// JobListOptions filters job listings
type JobListOptions struct {
	Status    models.JobStatus
	LibraryID string
	UserEmail string
	Limit     int
	Offset    int
}
