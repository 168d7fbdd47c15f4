// -----------------------------------------------------------------------
// Templates - Transformation template selection
// -----------------------------------------------------------------------

package templates

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/shadowtwin"
)

// builtinTemplate is the last-resort template body used when a library has no
// usable template files at all. Selection never fails outright.
const builtinTemplate = `---
title:
shortTitle:
summary:
tags:
language:
---

# {title}

{content}
`

// Selection is the outcome of a template pick
type Selection struct {
	Name   string // template base name without .md
	Body   string
	Source string // "preferred", "default", "first", "builtin"
}

// PreferredHonored reports whether the requested template was the one picked
func (s Selection) PreferredHonored(preferred string) bool {
	return preferred != "" && s.Source == "preferred"
}

// Picker selects the transformation template for a job from the library's
// templates folder.
type Picker struct {
	config common.TemplatesConfig
	logger arbor.ILogger
}

// NewPicker creates a template picker
func NewPicker(config common.TemplatesConfig, logger arbor.ILogger) *Picker {
	if config.FolderName == "" {
		config.FolderName = "templates"
	}
	if config.DefaultName == "" {
		config.DefaultName = "standard.md"
	}
	return &Picker{config: config, logger: logger}
}

// Pick resolves the template to use. Order: case-insensitive match of the
// preferred name (with or without .md), then the configured default, then the
// alphabetically first markdown file, then the builtin body. The templates
// folder is created at the library root when missing.
func (p *Picker) Pick(ctx context.Context, provider interfaces.StorageProvider, rootID, preferred string) (*Selection, error) {
	folder, err := provider.CreateFolder(ctx, rootID, p.config.FolderName)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure templates folder: %w", err)
	}

	items, err := provider.ListItemsByID(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates folder: %w", err)
	}

	var candidates []interfaces.StorageItem
	for _, item := range items {
		if !item.IsFolder && strings.HasSuffix(strings.ToLower(item.Name), ".md") {
			candidates = append(candidates, item)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })

	if preferred != "" {
		want := strings.ToLower(shadowtwin.TemplateBaseName(preferred))
		for _, item := range candidates {
			if strings.ToLower(shadowtwin.TemplateBaseName(item.Name)) == want {
				return p.load(ctx, provider, item, "preferred")
			}
		}
		p.logger.Debug().
			Str("preferred", preferred).
			Msg("Preferred template not found, falling back")
	}

	for _, item := range candidates {
		if strings.EqualFold(item.Name, p.config.DefaultName) {
			return p.load(ctx, provider, item, "default")
		}
	}

	if len(candidates) > 0 {
		return p.load(ctx, provider, candidates[0], "first")
	}

	p.logger.Warn().
		Str("folder", p.config.FolderName).
		Msg("No template files in library, using builtin template")

	return &Selection{
		Name:   shadowtwin.TemplateBaseName(p.config.DefaultName),
		Body:   builtinTemplate,
		Source: "builtin",
	}, nil
}

func (p *Picker) load(ctx context.Context, provider interfaces.StorageProvider, item interfaces.StorageItem, source string) (*Selection, error) {
	body, err := provider.GetBinary(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", item.Name, err)
	}
	return &Selection{
		Name:   shadowtwin.TemplateBaseName(item.Name),
		Body:   string(body),
		Source: source,
	}, nil
}
