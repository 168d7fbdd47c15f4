package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// TemplateDecision is the outcome of template-phase preprocessing. Meta holds
// the existing artifact's parsed frontmatter so repair runs can merge into it.
type TemplateDecision struct {
	HasMarkdown      bool                    `json:"hasMarkdown"`
	HasFrontmatter   bool                    `json:"hasFrontmatter"`
	FrontmatterValid bool                    `json:"frontmatterValid"`
	NeedTransform    bool                    `json:"needTransform"`
	Gate             *interfaces.ArtifactRef `json:"-"`
	Meta             map[string]interface{}  `json:"-"`
	Reasons          []string                `json:"reasons"`
}

// EvaluateTemplate decides whether the template transformation must run. The
// gate is a transformation artifact whose frontmatter is complete and whose
// body carries renderable content; an incomplete or hollow artifact gates
// identically to a missing one so repair runs happen. DirectiveAuto resolves
// to do before the shared gating rule applies.
func EvaluateTemplate(ctx context.Context, store interfaces.ArtifactStore, src interfaces.SourceRef, language, template string, directive models.PhaseDirective, logger arbor.ILogger) (*TemplateDecision, error) {
	decision := &TemplateDecision{}

	ref, err := store.FindTransformation(ctx, src, language, template)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transformation gate: %w", err)
	}

	gateValid := false
	if ref == nil {
		decision.Reasons = append(decision.Reasons, "no transformation artifact")
	} else {
		decision.Gate = ref
		decision.HasMarkdown = true
		content, err := store.ReadMarkdown(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to read transformation artifact: %w", err)
		}

		meta, body, ok := frontmatter.Parse(content)
		if ok {
			decision.HasFrontmatter = true
			decision.Meta = meta
			decision.FrontmatterValid = frontmatter.Complete(meta)
		}
		switch {
		case !ok:
			decision.Reasons = append(decision.Reasons, "artifact has no parseable frontmatter")
		case !frontmatter.Complete(meta):
			missing := frontmatter.MissingKeys(meta)
			decision.Reasons = append(decision.Reasons, "frontmatter incomplete: "+strings.Join(missing, ", "))
		case !hasRenderableContent(body):
			decision.Reasons = append(decision.Reasons, "artifact body is empty")
		default:
			gateValid = true
			decision.Reasons = append(decision.Reasons, "valid transformation exists: "+ref.Name)
		}
	}

	if directive == models.DirectiveAuto {
		decision.Reasons = append(decision.Reasons, "directive auto resolved to do")
		directive = models.DirectiveDo
	} else {
		decision.Reasons = append(decision.Reasons, "directive "+string(directive))
	}

	decision.NeedTransform = models.ShouldRunWithGate(gateValid, directive)

	logger.Debug().
		Str("item_id", src.ItemID).
		Str("language", language).
		Str("template", template).
		Bool("gate_valid", gateValid).
		Bool("need_transform", decision.NeedTransform).
		Msg("Template preprocessing decided")

	return decision, nil
}

// hasRenderableContent parses the markdown body and reports whether any text
// actually renders.
func hasRenderableContent(body string) bool {
	source := []byte(body)
	if len(bytes.TrimSpace(source)) == 0 {
		return false
	}

	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	found := false
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			if len(bytes.TrimSpace(t.Segment.Value(source))) > 0 {
				found = true
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}
