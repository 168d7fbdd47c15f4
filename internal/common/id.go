package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewJobSecret generates the per-job callback secret handed to the worker
func NewJobSecret() string {
	return uuid.New().String() + uuid.New().String()
}

// NewTwinID generates a unique shadow twin document ID with the "twin_" prefix
// Format: twin_<uuid>
func NewTwinID() string {
	return "twin_" + uuid.New().String()
}
