package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/runtime"
)

type stubRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func newStubRepo(jobs ...*models.Job) *stubRepo {
	r := &stubRepo{jobs: make(map[string]*models.Job)}
	for _, job := range jobs {
		r.jobs[job.ID] = job
	}
	return r
}

func (r *stubRepo) Create(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *stubRepo) Get(_ context.Context, jobID string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

func (r *stubRepo) List(_ context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Job
	for _, job := range r.jobs {
		if opts != nil && opts.Status != "" && job.Status != opts.Status {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (r *stubRepo) Delete(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	return nil
}

func (r *stubRepo) UpdateStep(_ context.Context, _ string, _ models.JobStep) error { return nil }

func (r *stubRepo) SetStatus(_ context.Context, jobID string, status models.JobStatus, jobErr *models.JobError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	job.Status = status
	job.Error = jobErr
	return nil
}

func (r *stubRepo) SetResult(_ context.Context, _ string, _ *models.JobResult) error { return nil }
func (r *stubRepo) AppendLog(_ context.Context, _ string, _ ...models.JobLogEntry) error {
	return nil
}
func (r *stubRepo) TraceStartSpan(_ context.Context, _, _ string) string                     { return "" }
func (r *stubRepo) TraceAddEvent(_ context.Context, _, _, _ string, _ map[string]interface{}) {}
func (r *stubRepo) TraceEndSpan(_ context.Context, _, _ string)                               {}

func newTestService(repo *stubRepo) (*Service, *runtime.Registry) {
	logger := arbor.NewLogger()
	registry := runtime.NewRegistry(logger, nil)
	cfg := common.SchedulerConfig{Enabled: true, RetentionDays: 30}
	return NewService(cfg, 240*time.Second, repo, registry, logger), registry
}

func staleTime(d time.Duration) *time.Time {
	t := time.Now().Add(-d)
	return &t
}

func TestRecoverOrphanedJobs(t *testing.T) {
	orphan := &models.Job{ID: "orphan", Status: models.JobStatusRunning, StartedAt: staleTime(10 * time.Minute)}
	watched := &models.Job{ID: "watched", Status: models.JobStatusRunning, StartedAt: staleTime(10 * time.Minute)}
	fresh := &models.Job{ID: "fresh", Status: models.JobStatusRunning, StartedAt: staleTime(10 * time.Second)}
	queued := &models.Job{ID: "queued", Status: models.JobStatusQueued}

	repo := newStubRepo(orphan, watched, fresh, queued)
	svc, registry := newTestService(repo)
	defer registry.Shutdown()

	// The watched job has a live timer, so it must survive the sweep
	registry.Watchdog().Start(context.Background(), "watched", time.Hour)

	require.NoError(t, svc.RecoverOrphanedJobs(context.Background()))

	assert.Equal(t, models.JobStatusFailed, orphan.Status)
	require.NotNil(t, orphan.Error)
	assert.Equal(t, "orphaned", orphan.Error.Code)

	assert.Equal(t, models.JobStatusRunning, watched.Status)
	// Inside the grace period, not yet orphaned
	assert.Equal(t, models.JobStatusRunning, fresh.Status)
	// Queued jobs are never swept
	assert.Equal(t, models.JobStatusQueued, queued.Status)
}

func TestRecoverOrphanedPendingStorage(t *testing.T) {
	parked := &models.Job{ID: "parked", Status: models.JobStatusPendingStorage, StartedAt: staleTime(10 * time.Minute)}
	repo := newStubRepo(parked)
	svc, registry := newTestService(repo)
	defer registry.Shutdown()

	require.NoError(t, svc.RecoverOrphanedJobs(context.Background()))
	assert.Equal(t, models.JobStatusFailed, parked.Status)
}

func TestPruneExpiredJobs(t *testing.T) {
	old := &models.Job{ID: "old", Status: models.JobStatusCompleted, CompletedAt: staleTime(31 * 24 * time.Hour)}
	recent := &models.Job{ID: "recent", Status: models.JobStatusFailed, CompletedAt: staleTime(24 * time.Hour)}
	active := &models.Job{ID: "active", Status: models.JobStatusRunning, CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}

	repo := newStubRepo(old, recent, active)
	svc, registry := newTestService(repo)
	defer registry.Shutdown()

	require.NoError(t, svc.PruneExpiredJobs(context.Background()))

	_, err := repo.Get(context.Background(), "old")
	assert.Error(t, err)
	_, err = repo.Get(context.Background(), "recent")
	assert.NoError(t, err)
	// Non-terminal jobs are never pruned regardless of age
	_, err = repo.Get(context.Background(), "active")
	assert.NoError(t, err)
}

func TestPruningDisabledByRetention(t *testing.T) {
	old := &models.Job{ID: "old", Status: models.JobStatusCompleted, CompletedAt: staleTime(365 * 24 * time.Hour)}
	repo := newStubRepo(old)

	logger := arbor.NewLogger()
	registry := runtime.NewRegistry(logger, nil)
	defer registry.Shutdown()
	svc := NewService(common.SchedulerConfig{Enabled: true, RetentionDays: 0}, 240*time.Second, repo, registry, logger)

	require.NoError(t, svc.PruneExpiredJobs(context.Background()))
	_, err := repo.Get(context.Background(), "old")
	assert.NoError(t, err)
}
