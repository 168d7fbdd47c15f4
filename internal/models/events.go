package models

import (
	"time"
)

// JobUpdateEvent is the live update pushed to connected UI streams whenever
// a job changes state or reports progress.
type JobUpdateEvent struct {
	JobID     string     `json:"job_id"`
	Status    JobStatus  `json:"status"`
	Phase     string     `json:"phase,omitempty"`
	Progress  int        `json:"progress,omitempty"` // 0-100
	Message   string     `json:"message,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	Error     *JobError  `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// JobUpdateChannel returns the per-user event bus channel name for job updates
func JobUpdateChannel(email string) string {
	return "job_update:" + email
}
