// -----------------------------------------------------------------------
// Jobs - Orchestration of external worker pipeline jobs
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/pdf"
	"github.com/ternarybob/scribe/internal/services/runtime"
	"github.com/ternarybob/scribe/internal/services/templates"
)

// Service orchestrates external pipeline jobs: enqueue, webhook processing,
// watchdog enforcement and artifact persistence.
type Service struct {
	config    *common.Config
	repo      interfaces.JobRepository
	registry  *runtime.Registry
	libraries map[string]*Library
	picker    *templates.Picker
	transform interfaces.TransformClient
	ingest    interfaces.IngestTrigger
	prober    *pdf.Prober
	logger    arbor.ILogger
}

// NewService wires the job orchestrator. The runtime registry's watchdog
// callback is connected here so timer firings flow back into job state.
func NewService(
	config *common.Config,
	repo interfaces.JobRepository,
	registry *runtime.Registry,
	libraries map[string]*Library,
	picker *templates.Picker,
	transform interfaces.TransformClient,
	ingest interfaces.IngestTrigger,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		repo:      repo,
		registry:  registry,
		libraries: libraries,
		picker:    picker,
		transform: transform,
		ingest:    ingest,
		prober:    pdf.NewProber(logger),
		logger:    logger,
	}
}

// EnqueueRequest describes a job to create
type EnqueueRequest struct {
	JobType    models.JobType        `json:"job_type"`
	Operation  string                `json:"operation"`
	Worker     string                `json:"worker"`
	UserEmail  string                `json:"user_email"`
	LibraryID  string                `json:"library_id"`
	SourceID   string                `json:"source_id"`
	BatchID    string                `json:"batch_id,omitempty"`
	Parameters models.JobParameters  `json:"parameters"`
	Options    map[string]interface{} `json:"options,omitempty"`
}

// Enqueue creates a job in status queued and returns it along with the
// plaintext callback secret. The secret is shown exactly once; only its hash
// is persisted.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*models.Job, string, error) {
	lib, ok := s.libraries[req.LibraryID]
	if !ok {
		return nil, "", fmt.Errorf("unknown library: %s", req.LibraryID)
	}

	item, err := lib.Provider.GetItemByID(ctx, req.SourceID)
	if err != nil {
		return nil, "", fmt.Errorf("source item not found: %w", err)
	}
	if item.IsFolder {
		return nil, "", fmt.Errorf("source item is a folder: %s", req.SourceID)
	}

	if req.JobType == models.JobTypePDF {
		if err := s.probePDF(ctx, lib, item.ID); err != nil {
			return nil, "", fmt.Errorf("source rejected: %w", err)
		}
	}

	secret := common.NewJobSecret()
	job := &models.Job{
		ID:            common.NewJobID(),
		JobSecretHash: models.HashJobSecret(secret),
		JobType:       req.JobType,
		Operation:     req.Operation,
		Worker:        req.Worker,
		UserEmail:     req.UserEmail,
		Status:        models.JobStatusQueued,
		Correlation: models.JobCorrelation{
			LibraryID: req.LibraryID,
			Source: models.JobSource{
				ItemID:    item.ID,
				ParentID:  item.ParentID,
				Name:      item.Name,
				MimeType:  item.MimeType,
				MediaType: mediaTypeFor(req.JobType),
			},
			Options: req.Options,
			BatchID: req.BatchID,
		},
		Parameters: req.Parameters,
		Steps: []models.JobStep{
			{Name: models.PhaseExtract, Status: models.StepStatusPending},
			{Name: models.PhaseMetadata, Status: models.StepStatusPending},
			{Name: models.PhaseIngest, Status: models.StepStatusPending},
		},
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, "", err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("library_id", req.LibraryID).
		Str("source", item.Name).
		Str("job_type", string(req.JobType)).
		Msg("Job enqueued")

	s.emitUpdate(job, "", 0, "queued")

	return job, secret, nil
}

// Get returns a job by id
func (s *Service) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return s.repo.Get(ctx, jobID)
}

// List returns jobs matching the options
func (s *Service) List(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return s.repo.List(ctx, opts)
}

// Delete removes a job record and releases its runtime state
func (s *Service) Delete(ctx context.Context, jobID string) error {
	s.registry.Release(jobID)
	return s.repo.Delete(ctx, jobID)
}

// Restart resets a terminal job back to queued. Distinct from cancellation;
// running jobs cannot be restarted.
func (s *Service) Restart(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsTerminal() {
		return nil, fmt.Errorf("job %s is not in a terminal state", jobID)
	}

	if err := s.repo.SetStatus(ctx, jobID, models.JobStatusQueued, nil); err != nil {
		return nil, err
	}
	for _, step := range job.Steps {
		step.Status = models.StepStatusPending
		step.StartedAt = nil
		step.CompletedAt = nil
		step.DurationMs = 0
		step.Error = ""
		if err := s.repo.UpdateStep(ctx, jobID, step); err != nil {
			return nil, err
		}
	}

	s.appendLog(ctx, jobID, models.JobLogEntry{
		Timestamp: time.Now(),
		Message:   "job restarted",
	})

	restarted, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job restarted")
	s.emitUpdate(restarted, "", 0, "restarted")

	return restarted, nil
}

// OnWatchdogTimeout is the watchdog firing path: the only way a job fails
// without an explicit webhook saying so.
func (s *Service) OnWatchdogTimeout(jobID string, timeout time.Duration) {
	ctx := context.Background()

	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Watchdog fired for unknown job")
		return
	}
	if job.Status.IsTerminal() {
		return
	}

	// Flush buffered progress logs before the failure entry
	buffered := s.registry.DrainLogs(jobID)
	buffered = append(buffered, models.JobLogEntry{
		Timestamp: time.Now(),
		Level:     "error",
		Message:   fmt.Sprintf("no worker progress within %s, job failed by watchdog", timeout),
	})
	if err := s.repo.AppendLog(ctx, jobID, buffered...); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to flush logs on timeout")
	}

	jobErr := &models.JobError{
		Code:    "timeout",
		Message: fmt.Sprintf("worker made no progress within %s", timeout),
	}
	if err := s.repo.SetStatus(ctx, jobID, models.JobStatusFailed, jobErr); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to fail job on timeout")
		return
	}

	s.registry.Release(jobID)

	failed, err := s.repo.Get(ctx, jobID)
	if err == nil {
		s.emitUpdate(failed, "", 0, "job failed: watchdog timeout")
	}
}

// WatchdogTimeout returns the configured per-job idle timeout
func (s *Service) WatchdogTimeout() time.Duration {
	return s.config.Watchdog.Timeout
}

// Library returns the registered library for an id, or nil
func (s *Service) Library(id string) *Library {
	return s.libraries[id]
}

// ---- Helpers ----

func (s *Service) probePDF(ctx context.Context, lib *Library, itemID string) error {
	content, err := lib.Provider.GetBinary(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	result, err := s.prober.Probe(ctx, content)
	if err != nil {
		return err
	}
	return result.Check()
}

func (s *Service) emitUpdate(job *models.Job, phase string, progress int, message string) {
	if job.UserEmail == "" {
		return
	}
	s.registry.EventBus().EmitUpdate(models.JobUpdateChannel(job.UserEmail), models.JobUpdateEvent{
		JobID:     job.ID,
		Status:    job.Status,
		Phase:     phase,
		Progress:  progress,
		Message:   message,
		Result:    job.Result,
		Error:     job.Error,
		Timestamp: time.Now(),
	})
}

func (s *Service) appendLog(ctx context.Context, jobID string, entries ...models.JobLogEntry) {
	if err := s.repo.AppendLog(ctx, jobID, entries...); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to append job log")
	}
}

func mediaTypeFor(jobType models.JobType) string {
	switch jobType {
	case models.JobTypePDF, models.JobTypeText:
		return "document"
	case models.JobTypeAudio:
		return "audio"
	case models.JobTypeVideo:
		return "video"
	default:
		return strings.ToLower(string(jobType))
	}
}
