package registry

import (
	"fmt"

	"github.com/plures/praxis/internal/contract"
)

// GapSink receives contract gaps found at registration time.
type GapSink func(gap contract.Gap)

// ComplianceOptions configures the registration-time contract check.
type ComplianceOptions struct {
	// RequiredFields lists the contract fields that must be non-empty.
	// Default: behavior, examples, invariants.
	RequiredFields []contract.Artifact

	// MissingSeverity grades descriptors with no contract at all.
	// Default: warning.
	MissingSeverity contract.Severity

	// IncompleteSeverity is accepted for configuration symmetry but is not
	// applied: incomplete contracts are always reported at
	// IncompleteGapSeverity, so an absent contract and a partial one stay
	// distinguishable.
	IncompleteSeverity contract.Severity

	// OnGap receives each gap. Default: a WARN log line.
	OnGap GapSink
}

// IncompleteGapSeverity is the fixed severity of gaps for contracts that
// exist but have empty required fields.
const IncompleteGapSeverity = contract.SeverityInfo

func (o ComplianceOptions) withDefaults() ComplianceOptions {
	if o.RequiredFields == nil {
		o.RequiredFields = contract.DefaultRequiredFields
	}
	if o.MissingSeverity == "" {
		o.MissingSeverity = contract.SeverityWarning
	}
	return o
}

// checkCompliance reports gaps for a freshly registered descriptor.
// Must be called only after the descriptor has been stored.
func (r *Registry) checkCompliance(id string, d contract.Carrier) {
	if r.compliance == nil {
		return
	}
	gap, ok := r.evaluate(id, d)
	if !ok {
		return
	}
	r.gaps = append(r.gaps, gap)

	if r.compliance.OnGap != nil {
		r.deliver(gap)
		return
	}
	r.logger.Warn("contract gap",
		"rule_id", gap.RuleID,
		"missing", contract.JoinArtifacts(gap.Missing),
		"severity", gap.Severity,
		"message", gap.Message,
	)
}

func (r *Registry) evaluate(id string, d contract.Carrier) (contract.Gap, bool) {
	c, ok := contract.FromDescriptor(d)
	if !ok {
		return contract.Gap{
			RuleID:   id,
			Missing:  []contract.Artifact{contract.ArtifactContract},
			Severity: r.compliance.MissingSeverity,
			Message:  fmt.Sprintf("%q has no contract", id),
		}, true
	}

	missing := contract.MissingFields(c, r.compliance.RequiredFields)
	if len(missing) == 0 {
		return contract.Gap{}, false
	}
	return contract.Gap{
		RuleID:   id,
		Missing:  missing,
		Severity: IncompleteGapSeverity,
		Message:  fmt.Sprintf("%q contract is missing: %s", id, contract.JoinArtifacts(missing)),
	}, true
}

// deliver hands gap to the configured sink. A panicking sink is logged and
// swallowed; the descriptor is already registered.
func (r *Registry) deliver(gap contract.Gap) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("contract gap sink panicked",
				"rule_id", gap.RuleID,
				"panic", fmt.Sprint(p),
			)
		}
	}()
	r.compliance.OnGap(gap)
}
