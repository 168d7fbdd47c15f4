package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// HandleProgressIfAny applies a webhook body when it is a genuine
// intermediate progress update: watchdog bump, step running, buffered log,
// live update. Returns nil when the payload is the worker's final result for
// the job's primary operation, signaling the caller to run completion logic
// instead. A final transcription delivered under phase "progress" is treated
// as final.
func (s *Service) HandleProgressIfAny(ctx context.Context, rc *RequestContext) (*models.CallbackAck, error) {
	p := rc.Payload
	if p.Phase != models.CallbackPhaseProgress || p.HasFinalData() {
		return nil, nil
	}

	job := rc.Job

	// First signal from the worker moves the job to running
	if job.Status == models.JobStatusQueued {
		if err := s.repo.SetStatus(ctx, job.ID, models.JobStatusRunning, nil); err != nil {
			return nil, err
		}
		job.Status = models.JobStatusRunning
		s.registry.Watchdog().Start(ctx, job.ID, s.config.Watchdog.Timeout)
	} else {
		s.registry.Watchdog().Bump(job.ID, 0)
	}

	step := stepForPayload(job, p.Step)
	if step != "" {
		existing := job.Step(step)
		if existing == nil || existing.Status == models.StepStatusPending {
			now := time.Now()
			if err := s.repo.UpdateStep(ctx, job.ID, models.JobStep{
				Name:      step,
				Status:    models.StepStatusRunning,
				StartedAt: &now,
			}); err != nil {
				return nil, err
			}
		}
	}

	// Progress logs are buffered and flushed on the next durable write
	s.registry.BufferLog(job.ID, models.JobLogEntry{
		Timestamp: time.Now(),
		Phase:     step,
		Message:   p.Message,
		Progress:  p.Progress,
	})

	s.emitUpdate(job, step, p.Progress, p.Message)

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("step", step).
		Int("progress", p.Progress).
		Msg("Progress recorded")

	return &models.CallbackAck{Status: "ok", JobID: job.ID}, nil
}

// stepForPayload maps a worker-reported step name onto a known phase,
// defaulting to extract when the worker names none.
func stepForPayload(job *models.Job, step string) string {
	switch step {
	case models.PhaseExtract, models.PhaseMetadata, models.PhaseIngest:
		return step
	case "":
		return models.PhaseExtract
	default:
		if job.Step(step) != nil {
			return step
		}
		return models.PhaseExtract
	}
}
