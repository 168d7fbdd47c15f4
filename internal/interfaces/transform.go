package interfaces

import (
	"context"
)

// TransformMeta is the normalized structured metadata produced by a template
// transform run. Nil means the run degraded: no structured metadata was
// produced, which never fails the job.
type TransformMeta map[string]interface{}

// TransformClient calls the external transform worker
type TransformClient interface {
	// RunTemplateTransform sends extracted text, the template body and the
	// target language to the worker and returns normalized structured
	// metadata. Malformed or missing structured data yields (nil, nil).
	RunTemplateTransform(ctx context.Context, text, template, language string) (TransformMeta, error)
}

// IngestTrigger kicks off vector-store ingestion for a finished artifact.
// The embedding pipeline itself is an external collaborator.
type IngestTrigger interface {
	TriggerIngest(ctx context.Context, libraryID, itemID string) error
}
