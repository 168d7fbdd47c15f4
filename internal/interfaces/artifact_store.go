package interfaces

import (
	"context"
	"time"
)

// ArtifactKind distinguishes the two artifact families a phase can produce
type ArtifactKind string

const (
	ArtifactTranscript     ArtifactKind = "transcript"
	ArtifactTransformation ArtifactKind = "transformation"
)

// SourceRef identifies the source file an artifact belongs to
type SourceRef struct {
	LibraryID string
	ItemID    string
	ParentID  string
	Name      string
}

// ArtifactRef is a resolved artifact location. ItemID is a storage item id
// for filesystem-backed libraries and a virtual artifact id for
// document-store-backed ones.
type ArtifactRef struct {
	ItemID    string
	Name      string
	Kind      ArtifactKind
	Language  string
	Template  string
	UpdatedAt time.Time

	// Legacy is true when the artifact was found beside the source file in
	// the pre-folder layout rather than inside the shadow twin folder.
	Legacy bool
}

// ArtifactStore deterministically locates and writes the derived artifacts of
// a source file. One implementation per backend (filesystem layout, document
// store), selected once per library. Resolution is deterministic: identical
// coordinates always return the same reference.
type ArtifactStore interface {
	// FindTranscript resolves the transcript for a target language.
	// Returns (nil, nil) when no artifact exists.
	FindTranscript(ctx context.Context, src SourceRef, language string) (*ArtifactRef, error)

	// FindTransformation resolves a transformation. With template == "" the
	// most recently updated transformation for the language is returned.
	// Returns (nil, nil) when no artifact exists.
	FindTransformation(ctx context.Context, src SourceRef, language, template string) (*ArtifactRef, error)

	// ReadMarkdown returns the markdown content of a resolved artifact
	ReadMarkdown(ctx context.Context, ref *ArtifactRef) (string, error)

	// WriteTranscript upserts the transcript for a language
	WriteTranscript(ctx context.Context, src SourceRef, language, markdown string) (*ArtifactRef, error)

	// WriteTransformation upserts the transformation for a (template, language) pair
	WriteTransformation(ctx context.Context, src SourceRef, language, template, markdown string) (*ArtifactRef, error)
}
