package models

// PhaseDirective controls whether a pipeline phase executes given gate state
type PhaseDirective string

const (
	DirectiveIgnore PhaseDirective = "ignore"
	DirectiveDo     PhaseDirective = "do"
	DirectiveForce  PhaseDirective = "force"
	// DirectiveAuto is recognized at the template call site only and is
	// resolved against gate state before reaching ShouldRunWithGate.
	DirectiveAuto PhaseDirective = "auto"
)

// PhasePolicies holds the per-phase directives for a job
type PhasePolicies struct {
	Extract  PhaseDirective `json:"extract,omitempty"`
	Metadata PhaseDirective `json:"metadata,omitempty"`
	Ingest   PhaseDirective `json:"ingest,omitempty"`
}

// complete reports whether all three phases carry an explicit directive
func (p PhasePolicies) complete() bool {
	return p.Extract != "" && p.Metadata != "" && p.Ingest != ""
}

// ResolvePolicies returns the effective per-phase directives for a job.
// Explicit policies win when fully populated; otherwise legacy boolean
// flags are translated. Unrecognized or missing flags default to ignore.
// Pure function, no side effects.
func ResolvePolicies(job *Job) PhasePolicies {
	if job == nil {
		return PhasePolicies{Extract: DirectiveIgnore, Metadata: DirectiveIgnore, Ingest: DirectiveIgnore}
	}

	if job.Parameters.Policies.complete() {
		return job.Parameters.Policies
	}

	p := job.Parameters
	policies := PhasePolicies{Extract: DirectiveIgnore, Metadata: DirectiveIgnore, Ingest: DirectiveIgnore}

	if p.ForceRecreate {
		policies.Extract = DirectiveForce
	} else if p.DoExtractPDF {
		policies.Extract = DirectiveDo
	}

	if p.DoExtractMetadata {
		if p.ForceTemplate {
			policies.Metadata = DirectiveForce
		} else {
			policies.Metadata = DirectiveDo
		}
	}

	if p.DoIngestRAG {
		policies.Ingest = DirectiveDo
	}

	return policies
}

// ShouldRunWithGate is the single gating rule shared by the extract and
// template preprocessors: ignore never runs, force always runs, do runs
// only when no valid gate artifact exists.
func ShouldRunWithGate(gateExists bool, directive PhaseDirective) bool {
	switch directive {
	case DirectiveIgnore:
		return false
	case DirectiveForce:
		return true
	default:
		return !gateExists
	}
}
