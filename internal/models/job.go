// -----------------------------------------------------------------------
// Job - External pipeline job driven by worker webhooks
// -----------------------------------------------------------------------

package models

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// JobStatus represents the state of an external pipeline job
type JobStatus string

const (
	JobStatusQueued         JobStatus = "queued"
	JobStatusRunning        JobStatus = "running"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusFailed         JobStatus = "failed"
	JobStatusPendingStorage JobStatus = "pending-storage"
)

// IsTerminal returns true for states that end the job lifecycle
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine transition. Restart (terminal -> queued) is a distinct
// operation and is allowed explicitly.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusPendingStorage
	case JobStatusPendingStorage:
		return next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusCompleted, JobStatusFailed:
		return next == JobStatusQueued
	default:
		return false
	}
}

// JobType classifies the source document driving the job
type JobType string

const (
	JobTypePDF   JobType = "pdf"
	JobTypeAudio JobType = "audio"
	JobTypeVideo JobType = "video"
	JobTypeText  JobType = "text"
)

// Pipeline phase names. These double as step names on the job record.
const (
	PhaseExtract  = "extract"
	PhaseMetadata = "metadata"
	PhaseIngest   = "ingest"
)

// StepStatus represents the state of a single pipeline phase on a job
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// JobSource identifies the uploaded source file the job operates on.
// Immutable once the job is created.
type JobSource struct {
	ItemID    string `json:"item_id"`
	ParentID  string `json:"parent_id"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	MediaType string `json:"media_type"`
}

// JobCorrelation ties the job back to its library, source file and batch.
// Immutable once the job is created.
type JobCorrelation struct {
	LibraryID string                 `json:"library_id"`
	Source    JobSource              `json:"source"`
	Options   map[string]interface{} `json:"options,omitempty"`
	BatchID   string                 `json:"batch_id,omitempty"`
}

// JobParameters carries per-phase execution directives. Legacy boolean
// flags are translated into Policies at read time, never written back.
type JobParameters struct {
	Policies       PhasePolicies `json:"policies,omitempty"`
	TargetLanguage string        `json:"target_language,omitempty"`
	TemplateName   string        `json:"template_name,omitempty"`

	// Legacy flags from older clients, kept for read-time translation only
	DoExtractPDF      bool `json:"doExtractPDF,omitempty"`
	DoExtractMetadata bool `json:"doExtractMetadata,omitempty"`
	DoIngestRAG       bool `json:"doIngestRAG,omitempty"`
	ForceRecreate     bool `json:"forceRecreate,omitempty"`
	ForceTemplate     bool `json:"forceTemplate,omitempty"`
}

// JobStep records execution of one pipeline phase
type JobStep struct {
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMs  int64      `json:"duration_ms,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// JobLogEntry is one append-only log line on a job
type JobLogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Phase     string                 `json:"phase,omitempty"`
	Level     string                 `json:"level,omitempty"`
	Message   string                 `json:"message"`
	Progress  int                    `json:"progress,omitempty"` // 0-100
	Details   map[string]interface{} `json:"details,omitempty"`
}

// JobResult holds the artifacts produced by a completed job
type JobResult struct {
	SavedItemID string   `json:"saved_item_id,omitempty"`
	SavedItems  []string `json:"saved_items,omitempty"`
}

// JobError describes a terminal failure
type JobError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TraceEvent is a single event recorded inside a trace span
type TraceEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	Name      string                 `json:"name"`
	Attrs     map[string]interface{} `json:"attrs,omitempty"`
}

// TraceSpan is a persisted diagnostic span on a job. Span bookkeeping
// failures never fail the job.
type TraceSpan struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
	Events    []TraceEvent `json:"events,omitempty"`
}

// Job is the unit of work driven by the external worker. The job record is
// the single source of truth: it is read and re-written on every webhook,
// never cached across requests. Once status is terminal only the logs may
// still be appended to.
type Job struct {
	ID            string `json:"id" badgerhold:"key"`
	JobSecretHash string `json:"job_secret_hash"`

	JobType   JobType `json:"job_type"`
	Operation string  `json:"operation"`
	Worker    string  `json:"worker"`
	UserEmail string  `json:"user_email"`

	Status      JobStatus      `json:"status"`
	Correlation JobCorrelation `json:"correlation"`
	Parameters  JobParameters  `json:"parameters"`

	Steps []JobStep     `json:"steps"`
	Logs  []JobLogEntry `json:"logs"`
	Trace []TraceSpan   `json:"trace,omitempty"`

	Result *JobResult `json:"result,omitempty"`
	Error  *JobError  `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HashJobSecret returns the stored hash form of a per-job callback secret
func HashJobSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares a presented callback secret against the stored hash
// in constant time.
func (j *Job) VerifySecret(secret string) bool {
	if secret == "" || j.JobSecretHash == "" {
		return false
	}
	presented := HashJobSecret(secret)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(j.JobSecretHash)) == 1
}

// Step returns the step record with the given name, or nil
func (j *Job) Step(name string) *JobStep {
	for i := range j.Steps {
		if j.Steps[i].Name == name {
			return &j.Steps[i]
		}
	}
	return nil
}

// Validate validates the job record
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.JobType == "" {
		return fmt.Errorf("job type is required")
	}
	if j.Correlation.LibraryID == "" {
		return fmt.Errorf("job library id is required")
	}
	if j.Correlation.Source.ItemID == "" {
		return fmt.Errorf("job source item id is required")
	}
	return nil
}

// TargetLanguage returns the job's target language, defaulting to "de"
func (j *Job) TargetLanguage() string {
	if j.Parameters.TargetLanguage != "" {
		return j.Parameters.TargetLanguage
	}
	return "de"
}
