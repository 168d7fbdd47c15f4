// -----------------------------------------------------------------------
// Shadow Twin - Derived-artifact document for a single source file
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// ArtifactRecord is one stored pipeline result (transcript or transformation)
type ArtifactRecord struct {
	Markdown  string    `json:"markdown"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShadowTwinDocument holds every derived artifact for one source file when a
// library stores artifacts in the document database instead of alongside the
// source. Keyed by (LibraryID, SourceID); created lazily on first artifact
// write, updated on every phase re-run, never deleted automatically.
//
// Invariants: at most one transcript per language, at most one transformation
// per (template, language). All writes are upserts on those coordinates.
type ShadowTwinDocument struct {
	ID        string `json:"id" badgerhold:"key"`
	LibraryID string `json:"library_id" badgerhold:"index"`
	SourceID  string `json:"source_id" badgerhold:"index"`

	// Transcripts maps target language -> artifact
	Transcripts map[string]ArtifactRecord `json:"transcripts,omitempty"`

	// Transformations maps template name -> target language -> artifact
	Transformations map[string]map[string]ArtifactRecord `json:"transformations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertTranscript writes the transcript for a language, preserving the
// original CreatedAt on re-runs.
func (d *ShadowTwinDocument) UpsertTranscript(language, markdown string) {
	now := time.Now()
	if d.Transcripts == nil {
		d.Transcripts = make(map[string]ArtifactRecord)
	}
	rec, ok := d.Transcripts[language]
	if !ok {
		rec = ArtifactRecord{CreatedAt: now}
	}
	rec.Markdown = markdown
	rec.UpdatedAt = now
	d.Transcripts[language] = rec
	d.UpdatedAt = now
}

// UpsertTransformation writes the transformation for a (template, language)
// pair, preserving the original CreatedAt on re-runs.
func (d *ShadowTwinDocument) UpsertTransformation(template, language, markdown string) {
	now := time.Now()
	if d.Transformations == nil {
		d.Transformations = make(map[string]map[string]ArtifactRecord)
	}
	if d.Transformations[template] == nil {
		d.Transformations[template] = make(map[string]ArtifactRecord)
	}
	rec, ok := d.Transformations[template][language]
	if !ok {
		rec = ArtifactRecord{CreatedAt: now}
	}
	rec.Markdown = markdown
	rec.UpdatedAt = now
	d.Transformations[template][language] = rec
	d.UpdatedAt = now
}

// Transcript returns the transcript for a language, if present
func (d *ShadowTwinDocument) Transcript(language string) (ArtifactRecord, bool) {
	rec, ok := d.Transcripts[language]
	return rec, ok
}

// Transformation returns the transformation for a (template, language) pair
func (d *ShadowTwinDocument) Transformation(template, language string) (ArtifactRecord, bool) {
	byLang, ok := d.Transformations[template]
	if !ok {
		return ArtifactRecord{}, false
	}
	rec, ok := byLang[language]
	return rec, ok
}

// LatestTransformation returns the most recently updated transformation for a
// language across all templates, along with the template name that produced
// it. Last writer wins when no specific template is requested.
func (d *ShadowTwinDocument) LatestTransformation(language string) (template string, rec ArtifactRecord, ok bool) {
	for tpl, byLang := range d.Transformations {
		candidate, found := byLang[language]
		if !found {
			continue
		}
		if !ok || candidate.UpdatedAt.After(rec.UpdatedAt) {
			template, rec, ok = tpl, candidate, true
		}
	}
	return template, rec, ok
}
