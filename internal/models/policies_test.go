package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePoliciesPrefersExplicitPolicies(t *testing.T) {
	job := &Job{
		Parameters: JobParameters{
			Policies: PhasePolicies{
				Extract:  DirectiveForce,
				Metadata: DirectiveIgnore,
				Ingest:   DirectiveDo,
			},
			// Legacy flags must lose against fully populated policies
			DoExtractPDF:      false,
			DoExtractMetadata: true,
		},
	}

	p := ResolvePolicies(job)
	assert.Equal(t, DirectiveForce, p.Extract)
	assert.Equal(t, DirectiveIgnore, p.Metadata)
	assert.Equal(t, DirectiveDo, p.Ingest)
}

func TestResolvePoliciesPartialPoliciesFallBackToLegacyFlags(t *testing.T) {
	job := &Job{
		Parameters: JobParameters{
			Policies:     PhasePolicies{Extract: DirectiveForce}, // incomplete
			DoExtractPDF: true,
			DoIngestRAG:  true,
		},
	}

	p := ResolvePolicies(job)
	assert.Equal(t, DirectiveDo, p.Extract)
	assert.Equal(t, DirectiveIgnore, p.Metadata)
	assert.Equal(t, DirectiveDo, p.Ingest)
}

func TestResolvePoliciesLegacyFlagTranslation(t *testing.T) {
	tests := []struct {
		name     string
		params   JobParameters
		expected PhasePolicies
	}{
		{
			name:     "no flags defaults to ignore everywhere",
			params:   JobParameters{},
			expected: PhasePolicies{Extract: DirectiveIgnore, Metadata: DirectiveIgnore, Ingest: DirectiveIgnore},
		},
		{
			name:     "extract requested",
			params:   JobParameters{DoExtractPDF: true},
			expected: PhasePolicies{Extract: DirectiveDo, Metadata: DirectiveIgnore, Ingest: DirectiveIgnore},
		},
		{
			name:     "force recreate wins over plain extract",
			params:   JobParameters{DoExtractPDF: true, ForceRecreate: true},
			expected: PhasePolicies{Extract: DirectiveForce, Metadata: DirectiveIgnore, Ingest: DirectiveIgnore},
		},
		{
			name:     "force recreate alone still forces extract",
			params:   JobParameters{ForceRecreate: true},
			expected: PhasePolicies{Extract: DirectiveForce, Metadata: DirectiveIgnore, Ingest: DirectiveIgnore},
		},
		{
			name:     "metadata with force template",
			params:   JobParameters{DoExtractMetadata: true, ForceTemplate: true},
			expected: PhasePolicies{Extract: DirectiveIgnore, Metadata: DirectiveForce, Ingest: DirectiveIgnore},
		},
		{
			name:     "metadata without force template",
			params:   JobParameters{DoExtractMetadata: true},
			expected: PhasePolicies{Extract: DirectiveIgnore, Metadata: DirectiveDo, Ingest: DirectiveIgnore},
		},
		{
			name:     "force template without metadata is ignored",
			params:   JobParameters{ForceTemplate: true},
			expected: PhasePolicies{Extract: DirectiveIgnore, Metadata: DirectiveIgnore, Ingest: DirectiveIgnore},
		},
		{
			name:     "ingest",
			params:   JobParameters{DoIngestRAG: true},
			expected: PhasePolicies{Extract: DirectiveIgnore, Metadata: DirectiveIgnore, Ingest: DirectiveDo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolvePolicies(&Job{Parameters: tt.params}))
		})
	}
}

func TestResolvePoliciesNilJob(t *testing.T) {
	p := ResolvePolicies(nil)
	assert.Equal(t, DirectiveIgnore, p.Extract)
	assert.Equal(t, DirectiveIgnore, p.Metadata)
	assert.Equal(t, DirectiveIgnore, p.Ingest)
}

func TestShouldRunWithGate(t *testing.T) {
	tests := []struct {
		name       string
		gateExists bool
		directive  PhaseDirective
		expected   bool
	}{
		{"ignore never runs without gate", false, DirectiveIgnore, false},
		{"ignore never runs with gate", true, DirectiveIgnore, false},
		{"force always runs without gate", false, DirectiveForce, true},
		{"force always runs with gate", true, DirectiveForce, true},
		{"do runs when gate missing", false, DirectiveDo, true},
		{"do skips when gate exists", true, DirectiveDo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldRunWithGate(tt.gateExists, tt.directive))
		})
	}
}
