package preprocess

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// fakeStore serves canned artifacts keyed by kind
type fakeStore struct {
	transcript     *interfaces.ArtifactRef
	transformation *interfaces.ArtifactRef
	content        map[string]string
}

func (f *fakeStore) FindTranscript(ctx context.Context, src interfaces.SourceRef, language string) (*interfaces.ArtifactRef, error) {
	return f.transcript, nil
}

func (f *fakeStore) FindTransformation(ctx context.Context, src interfaces.SourceRef, language, template string) (*interfaces.ArtifactRef, error) {
	return f.transformation, nil
}

func (f *fakeStore) ReadMarkdown(ctx context.Context, ref *interfaces.ArtifactRef) (string, error) {
	return f.content[ref.ItemID], nil
}

func (f *fakeStore) WriteTranscript(ctx context.Context, src interfaces.SourceRef, language, markdown string) (*interfaces.ArtifactRef, error) {
	return nil, nil
}

func (f *fakeStore) WriteTransformation(ctx context.Context, src interfaces.SourceRef, language, template, markdown string) (*interfaces.ArtifactRef, error) {
	return nil, nil
}

var testSrc = interfaces.SourceRef{
	LibraryID: "lib-1",
	ItemID:    "item-1",
	ParentID:  "folder-1",
	Name:      "Commoning vs. Kommerz.pdf",
}

const completeArtifact = `---
title: Commoning vs. Kommerz
shortTitle: Commoning
summary: A comparison.
tags: [commons]
language: de
---

# Body

Some renderable text.
`

func TestEvaluateExtract(t *testing.T) {
	logger := arbor.NewLogger()
	ctx := context.Background()

	existing := &interfaces.ArtifactRef{
		ItemID: "file-9",
		Name:   "Commoning vs. Kommerz.de.md",
		Kind:   interfaces.ArtifactTranscript,
	}

	tests := []struct {
		name       string
		transcript *interfaces.ArtifactRef
		directive  models.PhaseDirective
		expected   bool
	}{
		{"do with no transcript runs", nil, models.DirectiveDo, true},
		{"do with transcript skips", existing, models.DirectiveDo, false},
		{"force with transcript runs", existing, models.DirectiveForce, true},
		{"ignore never runs", nil, models.DirectiveIgnore, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{transcript: tt.transcript}
			decision, err := EvaluateExtract(ctx, store, testSrc, "de", tt.directive, logger)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decision.NeedExtract)
			assert.Equal(t, tt.transcript != nil, decision.HasMarkdown)
			assert.NotEmpty(t, decision.Reasons)
		})
	}
}

func TestEvaluateExtractReportsMarkdownItemID(t *testing.T) {
	store := &fakeStore{transcript: &interfaces.ArtifactRef{ItemID: "file-9", Name: "x.de.md"}}
	decision, err := EvaluateExtract(context.Background(), store, testSrc, "de", models.DirectiveDo, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "file-9", decision.MarkdownItemID)
}

func TestEvaluateTemplateAutoWithCompleteArtifactSkips(t *testing.T) {
	ref := &interfaces.ArtifactRef{ItemID: "file-1", Name: "Commoning vs. Kommerz.standard.de.md", UpdatedAt: time.Now()}
	store := &fakeStore{
		transformation: ref,
		content:        map[string]string{"file-1": completeArtifact},
	}

	decision, err := EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveAuto, arbor.NewLogger())
	require.NoError(t, err)
	assert.False(t, decision.NeedTransform)
	assert.Equal(t, ref, decision.Gate)
}

func TestEvaluateTemplateForceAlwaysRuns(t *testing.T) {
	store := &fakeStore{
		transformation: &interfaces.ArtifactRef{ItemID: "file-1", Name: "x.standard.de.md"},
		content:        map[string]string{"file-1": completeArtifact},
	}

	decision, err := EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveForce, arbor.NewLogger())
	require.NoError(t, err)
	assert.True(t, decision.NeedTransform)
}

func TestEvaluateTemplateIncompleteFrontmatterGatesAsMissing(t *testing.T) {
	incomplete := `---
title: Only a title
---

Body text here.
`
	store := &fakeStore{
		transformation: &interfaces.ArtifactRef{ItemID: "file-1", Name: "x.standard.de.md"},
		content:        map[string]string{"file-1": incomplete},
	}

	decision, err := EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveDo, arbor.NewLogger())
	require.NoError(t, err)
	assert.True(t, decision.NeedTransform)
}

func TestEvaluateTemplateEmptyBodyGatesAsMissing(t *testing.T) {
	hollow := `---
title: T
shortTitle: S
summary: Sum
tags: [a]
language: de
---

`
	store := &fakeStore{
		transformation: &interfaces.ArtifactRef{ItemID: "file-1", Name: "x.standard.de.md"},
		content:        map[string]string{"file-1": hollow},
	}

	decision, err := EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveDo, arbor.NewLogger())
	require.NoError(t, err)
	assert.True(t, decision.NeedTransform)
}

func TestEvaluateTemplateExposesGateState(t *testing.T) {
	store := &fakeStore{
		transformation: &interfaces.ArtifactRef{ItemID: "file-1", Name: "x.standard.de.md"},
		content:        map[string]string{"file-1": completeArtifact},
	}

	decision, err := EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveDo, arbor.NewLogger())
	require.NoError(t, err)
	assert.True(t, decision.HasMarkdown)
	assert.True(t, decision.HasFrontmatter)
	assert.True(t, decision.FrontmatterValid)
	assert.Equal(t, "Commoning vs. Kommerz", decision.Meta["title"])

	// Incomplete frontmatter still surfaces the parsed meta for repair merging
	incomplete := "---\ntitle: Only a title\n---\n\nBody text here.\n"
	store.content["file-1"] = incomplete
	decision, err = EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveDo, arbor.NewLogger())
	require.NoError(t, err)
	assert.True(t, decision.HasFrontmatter)
	assert.False(t, decision.FrontmatterValid)
	assert.Equal(t, "Only a title", decision.Meta["title"])
}

func TestEvaluateTemplateMissingArtifactRuns(t *testing.T) {
	store := &fakeStore{}
	decision, err := EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveDo, arbor.NewLogger())
	require.NoError(t, err)
	assert.True(t, decision.NeedTransform)
	assert.Nil(t, decision.Gate)
}

func TestEvaluateTemplateIgnoreNeverRuns(t *testing.T) {
	store := &fakeStore{}
	decision, err := EvaluateTemplate(context.Background(), store, testSrc, "de", "standard", models.DirectiveIgnore, arbor.NewLogger())
	require.NoError(t, err)
	assert.False(t, decision.NeedTransform)
}
