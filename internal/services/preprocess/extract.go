// -----------------------------------------------------------------------
// Preprocess - Phase gating decisions made before dispatching work
// -----------------------------------------------------------------------

package preprocess

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// ExtractDecision is the outcome of extract-phase preprocessing
type ExtractDecision struct {
	HasMarkdown    bool     `json:"hasMarkdown"`
	MarkdownItemID string   `json:"markdownFileId,omitempty"`
	NeedExtract    bool     `json:"needExtract"`
	Reasons        []string `json:"reasons"`
}

// EvaluateExtract decides whether the extract phase must run. The gate
// artifact is the transcript for the job's target language.
func EvaluateExtract(ctx context.Context, store interfaces.ArtifactStore, src interfaces.SourceRef, language string, directive models.PhaseDirective, logger arbor.ILogger) (*ExtractDecision, error) {
	decision := &ExtractDecision{}

	ref, err := store.FindTranscript(ctx, src, language)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transcript gate: %w", err)
	}

	if ref != nil {
		decision.HasMarkdown = true
		decision.MarkdownItemID = ref.ItemID
		decision.Reasons = append(decision.Reasons, "transcript exists: "+ref.Name)
		if ref.Legacy {
			decision.Reasons = append(decision.Reasons, "transcript found in legacy sibling layout")
		}
	} else {
		decision.Reasons = append(decision.Reasons, "no transcript for language "+language)
	}

	decision.NeedExtract = models.ShouldRunWithGate(decision.HasMarkdown, directive)
	decision.Reasons = append(decision.Reasons, "directive "+string(directive))

	logger.Debug().
		Str("item_id", src.ItemID).
		Str("language", language).
		Bool("has_markdown", decision.HasMarkdown).
		Bool("need_extract", decision.NeedExtract).
		Msg("Extract preprocessing decided")

	return decision, nil
}
