package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/frontmatter"
	"github.com/ternarybob/scribe/internal/services/preprocess"
	"github.com/ternarybob/scribe/internal/services/transform"
	"github.com/ternarybob/scribe/internal/shadowtwin"
)

// HandleCallback routes one authenticated webhook call: worker failure,
// intermediate progress, or the final payload that drives phase completion.
func (s *Service) HandleCallback(ctx context.Context, rc *RequestContext) (*models.CallbackAck, error) {
	if rc.Payload.Phase == models.CallbackPhaseFailed {
		return s.failFromWorker(ctx, rc)
	}

	ack, err := s.HandleProgressIfAny(ctx, rc)
	if err != nil {
		return nil, err
	}
	if ack != nil {
		return ack, nil
	}

	return s.completeFromPayload(ctx, rc)
}

// failFromWorker applies an explicit failure webhook
func (s *Service) failFromWorker(ctx context.Context, rc *RequestContext) (*models.CallbackAck, error) {
	job := rc.Job

	if job.Status.IsTerminal() {
		return &models.CallbackAck{Status: "ok", JobID: job.ID}, nil
	}

	message := rc.Payload.ErrorMessage
	if message == "" {
		message = rc.Payload.Message
	}
	if message == "" {
		message = "worker reported failure"
	}

	entries := s.registry.DrainLogs(job.ID)
	entries = append(entries, models.JobLogEntry{
		Timestamp: time.Now(),
		Phase:     rc.Payload.Step,
		Level:     "error",
		Message:   message,
	})
	s.appendLog(ctx, job.ID, entries...)

	if step := stepForPayload(job, rc.Payload.Step); step != "" {
		now := time.Now()
		s.updateStepWarn(ctx, job.ID, models.JobStep{
			Name:        step,
			Status:      models.StepStatusFailed,
			CompletedAt: &now,
			Error:       message,
		})
	}

	// queued jobs may fail directly; running and pending-storage too
	if err := s.repo.SetStatus(ctx, job.ID, models.JobStatusFailed, &models.JobError{
		Code:    "worker_failed",
		Message: message,
	}); err != nil {
		return nil, err
	}

	s.registry.Release(job.ID)

	failed, err := s.repo.Get(ctx, job.ID)
	if err == nil {
		s.emitUpdate(failed, rc.Payload.Step, 0, message)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("reason", message).
		Msg("Job failed by worker")

	return &models.CallbackAck{Status: "ok", JobID: job.ID}, nil
}

// completeFromPayload runs the phase pipeline on the worker's final payload:
// transcript persistence, template transformation, ingestion trigger, then
// job completion.
func (s *Service) completeFromPayload(ctx context.Context, rc *RequestContext) (*models.CallbackAck, error) {
	job := rc.Job

	// Completion is idempotent: re-delivery of the final webhook acks without
	// touching the stored result.
	if job.Status == models.JobStatusCompleted {
		return &models.CallbackAck{Status: "ok", JobID: job.ID}, nil
	}
	if job.Status == models.JobStatusFailed {
		return nil, fmt.Errorf("job %s already failed", job.ID)
	}

	if job.Status == models.JobStatusQueued {
		if err := s.repo.SetStatus(ctx, job.ID, models.JobStatusRunning, nil); err != nil {
			return nil, err
		}
		job.Status = models.JobStatusRunning
	}
	// Completion work below runs under watchdog protection
	s.registry.Watchdog().Start(ctx, job.ID, s.config.Watchdog.Timeout)

	lib, ok := s.libraries[job.Correlation.LibraryID]
	if !ok {
		return nil, fmt.Errorf("unknown library: %s", job.Correlation.LibraryID)
	}

	src := sourceRef(job)
	language := job.TargetLanguage()
	policies := models.ResolvePolicies(job)
	result := &models.JobResult{}

	markdown, err := s.completeExtract(ctx, job, lib, src, language, policies.Extract, rc.Payload, result)
	if err != nil {
		return s.deferToStorage(ctx, job, err)
	}

	if policies.Metadata != models.DirectiveIgnore {
		s.runTemplatePhase(ctx, job, lib, src, language, policies.Metadata, markdown, result)
	}

	if policies.Ingest != models.DirectiveIgnore {
		s.runIngestPhase(ctx, job, result)
	}

	return s.SetJobCompleted(ctx, job.ID, result)
}

// completeExtract persists the transcript from the final payload when the
// extract directive allows it, or resolves the existing one otherwise.
// Returns the transcript markdown for downstream phases.
func (s *Service) completeExtract(ctx context.Context, job *models.Job, lib *Library, src interfaces.SourceRef, language string, directive models.PhaseDirective, payload *models.CallbackPayload, result *models.JobResult) (string, error) {
	decision, err := preprocess.EvaluateExtract(ctx, lib.Artifacts, src, language, directive, s.logger)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate extract gate: %w", err)
	}

	markdown, ok := payload.TranscriptionText()
	if !ok {
		if html, hasHTML := payload.TranscriptionHTML(); hasHTML {
			markdown = transform.HTMLToMarkdown(html, s.logger)
			ok = markdown != ""
		}
	}

	if !decision.NeedExtract || !ok {
		// The directive forbids the phase (ignore, or do with an existing
		// gate), or no transcription was delivered. Either way the stored
		// transcript feeds the downstream phases.
		if !decision.NeedExtract && ok {
			s.registry.BufferLog(job.ID, models.JobLogEntry{
				Timestamp: time.Now(),
				Phase:     models.PhaseExtract,
				Message:   "extract phase skipped: " + strings.Join(decision.Reasons, ", "),
			})
		}
		return s.storedTranscript(ctx, job, lib, src, language), nil
	}

	now := time.Now()
	s.updateStepWarn(ctx, job.ID, models.JobStep{
		Name:      models.PhaseExtract,
		Status:    models.StepStatusRunning,
		StartedAt: &now,
	})

	prior, err := lib.Artifacts.FindTranscript(ctx, src, language)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Transcript pre-resolution failed")
		prior = nil
	}

	ref, err := lib.Artifacts.WriteTranscript(ctx, src, language, markdown)
	if err != nil {
		return "", fmt.Errorf("failed to persist transcript: %w", err)
	}

	// A superseded legacy sibling is cleaned up after the fresh write; the
	// cleanup keeps anything carrying frontmatter and never fails the job.
	if prior != nil && prior.Legacy && prior.ItemID != ref.ItemID {
		lib.Adopter.CleanupLegacySibling(ctx, prior.ItemID)
	}

	doneAt := time.Now()
	s.updateStepWarn(ctx, job.ID, models.JobStep{
		Name:        models.PhaseExtract,
		Status:      models.StepStatusCompleted,
		StartedAt:   &now,
		CompletedAt: &doneAt,
		DurationMs:  doneAt.Sub(now).Milliseconds(),
	})

	result.SavedItemID = ref.ItemID
	result.SavedItems = append(result.SavedItems, ref.ItemID)

	s.registry.BufferLog(job.ID, models.JobLogEntry{
		Timestamp: time.Now(),
		Phase:     models.PhaseExtract,
		Message:   "transcript saved: " + ref.Name,
	})

	return markdown, nil
}

// storedTranscript resolves and reads the existing transcript. A transcript
// still sitting in the legacy sibling layout is adopted into the shadow twin
// folder on the way; adoption failures warn and never fail the job.
func (s *Service) storedTranscript(ctx context.Context, job *models.Job, lib *Library, src interfaces.SourceRef, language string) string {
	ref, err := lib.Artifacts.FindTranscript(ctx, src, language)
	if err != nil || ref == nil {
		return ""
	}

	content, err := lib.Artifacts.ReadMarkdown(ctx, ref)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to read stored transcript")
		return ""
	}

	if ref.Legacy {
		if err := lib.Adopter.AdoptLegacyMarkdown(ctx, src, ref.ItemID, ""); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Legacy transcript adoption failed")
		} else {
			s.registry.BufferLog(job.ID, models.JobLogEntry{
				Timestamp: time.Now(),
				Phase:     models.PhaseExtract,
				Message:   "legacy transcript adopted: " + ref.Name,
			})
		}
	}

	return content
}

// runTemplatePhase gates, selects and runs the template transformation.
// Worker-side transform failures degrade to no metadata and never fail the
// job.
func (s *Service) runTemplatePhase(ctx context.Context, job *models.Job, lib *Library, src interfaces.SourceRef, language string, directive models.PhaseDirective, markdown string, result *models.JobResult) {
	templateName := shadowtwin.TemplateBaseName(job.Parameters.TemplateName)

	decision, err := preprocess.EvaluateTemplate(ctx, lib.Artifacts, src, language, templateName, directive, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Template preprocessing failed")
		return
	}
	if !decision.NeedTransform {
		s.registry.BufferLog(job.ID, models.JobLogEntry{
			Timestamp: time.Now(),
			Phase:     models.PhaseMetadata,
			Message:   "template phase skipped: valid transformation exists",
		})
		return
	}
	if markdown == "" {
		s.registry.BufferLog(job.ID, models.JobLogEntry{
			Timestamp: time.Now(),
			Phase:     models.PhaseMetadata,
			Level:     "warn",
			Message:   "template phase skipped: no transcript available",
		})
		return
	}

	started := time.Now()
	s.updateStepWarn(ctx, job.ID, models.JobStep{
		Name:      models.PhaseMetadata,
		Status:    models.StepStatusRunning,
		StartedAt: &started,
	})

	spanID := s.repo.TraceStartSpan(ctx, job.ID, "template-selection")
	selection, err := s.picker.Pick(ctx, lib.Provider, lib.RootID, job.Parameters.TemplateName)
	if err != nil {
		s.repo.TraceEndSpan(ctx, job.ID, spanID)
		s.failStep(ctx, job, models.PhaseMetadata, fmt.Sprintf("template selection failed: %v", err))
		return
	}
	s.repo.TraceAddEvent(ctx, job.ID, spanID, "template_picked", map[string]interface{}{
		"template":           selection.Name,
		"source":             selection.Source,
		"preferred_honored":  selection.PreferredHonored(job.Parameters.TemplateName),
		"preferred_template": job.Parameters.TemplateName,
	})
	s.repo.TraceEndSpan(ctx, job.ID, spanID)

	meta, err := s.transform.RunTemplateTransform(ctx, markdown, selection.Body, language)
	if err != nil {
		// Transient worker failure: degrade, do not fail the job
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Template transform call failed")
		meta = nil
	}
	if meta == nil {
		s.registry.BufferLog(job.ID, models.JobLogEntry{
			Timestamp: time.Now(),
			Phase:     models.PhaseMetadata,
			Level:     "warn",
			Message:   "transform_meta_failed: no structured metadata produced",
		})
		s.failStep(ctx, job, models.PhaseMetadata, "no structured metadata produced")
		return
	}

	prior, err := lib.Artifacts.FindTransformation(ctx, src, language, selection.Name)
	if err != nil {
		prior = nil
	}

	composed, err := composeTransformation(meta, markdown, src.Name, language)
	if err != nil {
		s.failStep(ctx, job, models.PhaseMetadata, fmt.Sprintf("failed to compose artifact: %v", err))
		return
	}

	ref, err := lib.Artifacts.WriteTransformation(ctx, src, language, selection.Name, composed)
	if err != nil {
		s.failStep(ctx, job, models.PhaseMetadata, fmt.Sprintf("failed to persist transformation: %v", err))
		return
	}

	if prior != nil && prior.Legacy && prior.ItemID != ref.ItemID {
		lib.Adopter.CleanupLegacySibling(ctx, prior.ItemID)
	}

	done := time.Now()
	s.updateStepWarn(ctx, job.ID, models.JobStep{
		Name:        models.PhaseMetadata,
		Status:      models.StepStatusCompleted,
		StartedAt:   &started,
		CompletedAt: &done,
		DurationMs:  done.Sub(started).Milliseconds(),
	})

	result.SavedItems = append(result.SavedItems, ref.ItemID)
	if result.SavedItemID == "" {
		result.SavedItemID = ref.ItemID
	}

	s.registry.BufferLog(job.ID, models.JobLogEntry{
		Timestamp: time.Now(),
		Phase:     models.PhaseMetadata,
		Message:   "transformation saved: " + ref.Name,
	})
}

// runIngestPhase kicks the external embedding pipeline. Failures are logged
// on the job but never fail it; ingestion can be retried by restarting.
func (s *Service) runIngestPhase(ctx context.Context, job *models.Job, result *models.JobResult) {
	if result.SavedItemID == "" {
		s.registry.BufferLog(job.ID, models.JobLogEntry{
			Timestamp: time.Now(),
			Phase:     models.PhaseIngest,
			Level:     "warn",
			Message:   "ingest skipped: no saved artifact",
		})
		return
	}

	started := time.Now()
	err := s.ingest.TriggerIngest(ctx, job.Correlation.LibraryID, result.SavedItemID)
	done := time.Now()

	step := models.JobStep{
		Name:        models.PhaseIngest,
		Status:      models.StepStatusCompleted,
		StartedAt:   &started,
		CompletedAt: &done,
		DurationMs:  done.Sub(started).Milliseconds(),
	}
	message := "ingestion triggered"
	level := ""
	if err != nil {
		step.Status = models.StepStatusFailed
		step.Error = err.Error()
		message = "ingestion trigger failed: " + err.Error()
		level = "warn"
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Ingest trigger failed")
	}

	s.updateStepWarn(ctx, job.ID, step)
	s.registry.BufferLog(job.ID, models.JobLogEntry{
		Timestamp: time.Now(),
		Phase:     models.PhaseIngest,
		Level:     level,
		Message:   message,
	})
}

// SetJobCompleted persists the final result and moves the job to completed.
// Idempotent: a second call for an already-completed job acks without
// touching the stored result.
func (s *Service) SetJobCompleted(ctx context.Context, jobID string, result *models.JobResult) (*models.CallbackAck, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusCompleted {
		return &models.CallbackAck{Status: "ok", JobID: jobID}, nil
	}

	if entries := s.registry.DrainLogs(jobID); len(entries) > 0 {
		s.appendLog(ctx, jobID, entries...)
	}

	if err := s.repo.SetResult(ctx, jobID, result); err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, jobID, models.JobStatusCompleted, nil); err != nil {
		return nil, err
	}

	s.registry.Release(jobID)

	completed, err := s.repo.Get(ctx, jobID)
	if err == nil {
		s.emitUpdate(completed, "", 100, "job completed")
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("saved_item_id", result.SavedItemID).
		Msg("Job completed")

	return &models.CallbackAck{Status: "ok", JobID: jobID}, nil
}

// deferToStorage parks a job in pending-storage when the final payload was
// processed but artifact persistence failed; a re-delivered final webhook
// retries from here.
func (s *Service) deferToStorage(ctx context.Context, job *models.Job, cause error) (*models.CallbackAck, error) {
	s.logger.Error().Err(cause).Str("job_id", job.ID).Msg("Artifact persistence failed, deferring")

	s.appendLog(ctx, job.ID, models.JobLogEntry{
		Timestamp: time.Now(),
		Level:     "error",
		Message:   "artifact persistence failed: " + cause.Error(),
	})

	if job.Status == models.JobStatusRunning {
		if err := s.repo.SetStatus(ctx, job.ID, models.JobStatusPendingStorage, nil); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to defer job")
		}
	}
	return nil, cause
}

func (s *Service) failStep(ctx context.Context, job *models.Job, name, message string) {
	now := time.Now()
	s.updateStepWarn(ctx, job.ID, models.JobStep{
		Name:        name,
		Status:      models.StepStatusFailed,
		CompletedAt: &now,
		Error:       message,
	})
	s.registry.BufferLog(job.ID, models.JobLogEntry{
		Timestamp: now,
		Phase:     name,
		Level:     "warn",
		Message:   message,
	})
}

func (s *Service) updateStepWarn(ctx context.Context, jobID string, step models.JobStep) {
	if err := s.repo.UpdateStep(ctx, jobID, step); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Str("step", step.Name).Msg("Failed to update step")
	}
}

// composeTransformation renders the transformation artifact: normalized
// structured metadata as frontmatter over the transcript body.
func composeTransformation(meta map[string]interface{}, body, sourceName, language string) (string, error) {
	merged := make(map[string]interface{}, len(meta)+2)
	for k, v := range meta {
		merged[k] = v
	}
	if _, ok := merged["title"]; !ok {
		merged["title"] = shadowtwin.ArtifactBaseName(sourceName)
	}
	if _, ok := merged["language"]; !ok {
		merged["language"] = language
	}
	return frontmatter.Compose(merged, body)
}

func sourceRef(job *models.Job) interfaces.SourceRef {
	return interfaces.SourceRef{
		LibraryID: job.Correlation.LibraryID,
		ItemID:    job.Correlation.Source.ItemID,
		ParentID:  job.Correlation.Source.ParentID,
		Name:      job.Correlation.Source.Name,
	}
}
