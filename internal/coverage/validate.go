package coverage

import (
	"fmt"
	"time"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/registry"
)

// Options configures ValidateContracts.
type Options struct {
	// RequiredFields lists the contract fields that must be non-empty.
	// Default: behavior, examples, invariants.
	RequiredFields []contract.Artifact

	// MissingSeverity grades gaps for descriptors without a contract.
	// Only used when EmitMissingGaps is set. Default: warning.
	MissingSeverity contract.Severity

	// IncompleteSeverity grades gaps for incomplete contracts.
	// Default: warning.
	IncompleteSeverity contract.Severity

	// EmitMissingGaps additionally records a gap with missing=[contract]
	// in Report.MissingGaps for every descriptor without a contract.
	EmitMissingGaps bool

	// Artifacts, when set, is consulted for test and spec presence.
	Artifacts ArtifactIndex

	// Now stamps the report. Default: time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RequiredFields == nil {
		o.RequiredFields = contract.DefaultRequiredFields
	}
	if o.MissingSeverity == "" {
		o.MissingSeverity = contract.SeverityWarning
	}
	if o.IncompleteSeverity == "" {
		o.IncompleteSeverity = contract.SeverityWarning
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Report is the outcome of ValidateContracts.
//
// INVARIANTS:
//   - len(Complete) + len(Incomplete) + len(Missing) == Total
//   - Ids appear in registry order, rules before constraints
type Report struct {
	Complete    []string       `json:"complete"`
	Incomplete  []contract.Gap `json:"incomplete"`
	Missing     []string       `json:"missing"`
	MissingGaps []contract.Gap `json:"missingGaps,omitempty"`
	Total       int            `json:"total"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Gaps returns every gap in the report: incomplete contracts first, then
// emitted missing-contract gaps.
func (r *Report) Gaps() []contract.Gap {
	out := make([]contract.Gap, 0, len(r.Incomplete)+len(r.MissingGaps))
	out = append(out, r.Incomplete...)
	return append(out, r.MissingGaps...)
}

// Passed reports whether every descriptor has a complete contract.
func (r *Report) Passed() bool {
	return len(r.Incomplete) == 0 && len(r.Missing) == 0
}

// ValidateContracts checks the contract of every rule and constraint in reg.
func ValidateContracts(reg *registry.Registry, opts Options) *Report {
	opts = opts.withDefaults()
	report := &Report{
		Complete:   []string{},
		Incomplete: []contract.Gap{},
		Missing:    []string{},
		Timestamp:  opts.Now().UTC(),
	}

	check := func(id string, d contract.Carrier) {
		report.Total++
		c, ok := contract.FromDescriptor(d)
		if !ok {
			report.Missing = append(report.Missing, id)
			if opts.EmitMissingGaps {
				report.MissingGaps = append(report.MissingGaps, contract.Gap{
					RuleID:   id,
					Missing:  []contract.Artifact{contract.ArtifactContract},
					Severity: opts.MissingSeverity,
					Message:  fmt.Sprintf("%q has no contract", id),
				})
			}
			return
		}

		missing := contract.MissingFields(c, opts.RequiredFields)
		missing = append(missing, missingArtifacts(id, opts.Artifacts)...)
		if len(missing) == 0 {
			report.Complete = append(report.Complete, id)
			return
		}
		report.Incomplete = append(report.Incomplete, contract.Gap{
			RuleID:   id,
			Missing:  missing,
			Severity: opts.IncompleteSeverity,
			Message:  fmt.Sprintf("%q contract is missing: %s", id, contract.JoinArtifacts(missing)),
		})
	}

	for _, d := range reg.Rules() {
		check(d.ID, d)
	}
	for _, d := range reg.Constraints() {
		check(d.ID, d)
	}
	return report
}

func missingArtifacts(id string, idx ArtifactIndex) []contract.Artifact {
	if idx == nil {
		return nil
	}
	var missing []contract.Artifact
	if !idx.HasTests(id) {
		missing = append(missing, contract.ArtifactTests)
	}
	if !idx.HasSpec(id) {
		missing = append(missing, contract.ArtifactSpec)
	}
	return missing
}
