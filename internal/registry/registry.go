package registry

import (
	"log/slog"

	"github.com/plures/praxis/internal/contract"
)

// Registry maps ids to rule and constraint descriptors.
//
// INVARIANTS:
//   - No duplicate id within the rule namespace or the constraint namespace
//   - ruleOrder and constraintOrder record registration order and never shrink
//   - A failed registration leaves the registry unchanged
type Registry struct {
	rules           map[string]RuleDescriptor
	ruleOrder       []string
	constraints     map[string]ConstraintDescriptor
	constraintOrder []string

	compliance *ComplianceOptions
	gaps       []contract.Gap
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithCompliance enables the registration-time contract check.
func WithCompliance(opts ComplianceOptions) Option {
	return func(r *Registry) {
		o := opts.withDefaults()
		r.compliance = &o
	}
}

// WithLogger sets the logger used by the default gap sink.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		rules:       make(map[string]RuleDescriptor),
		constraints: make(map[string]ConstraintDescriptor),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterRule stores a rule descriptor.
// Returns a DuplicateIDError if the id is already registered as a rule.
func (r *Registry) RegisterRule(d RuleDescriptor) error {
	if _, exists := r.rules[d.ID]; exists {
		return &DuplicateIDError{Code: ErrCodeDuplicateRule, ID: d.ID}
	}
	r.rules[d.ID] = d
	r.ruleOrder = append(r.ruleOrder, d.ID)

	r.checkCompliance(d.ID, d)
	return nil
}

// RegisterConstraint stores a constraint descriptor.
// Returns a DuplicateIDError if the id is already registered as a constraint.
func (r *Registry) RegisterConstraint(d ConstraintDescriptor) error {
	if _, exists := r.constraints[d.ID]; exists {
		return &DuplicateIDError{Code: ErrCodeDuplicateConstraint, ID: d.ID}
	}
	r.constraints[d.ID] = d
	r.constraintOrder = append(r.constraintOrder, d.ID)

	r.checkCompliance(d.ID, d)
	return nil
}

// RegisterModule registers all rules, then all constraints, of m.
//
// Registration stops at the first error. Descriptors registered before the
// failure stay registered; there is no rollback.
func (r *Registry) RegisterModule(m Module) error {
	for _, rule := range m.Rules {
		if err := r.RegisterRule(rule); err != nil {
			return err
		}
	}
	for _, c := range m.Constraints {
		if err := r.RegisterConstraint(c); err != nil {
			return err
		}
	}
	return nil
}

// Rule returns the rule registered under id.
func (r *Registry) Rule(id string) (RuleDescriptor, bool) {
	d, ok := r.rules[id]
	return d, ok
}

// Constraint returns the constraint registered under id.
func (r *Registry) Constraint(id string) (ConstraintDescriptor, bool) {
	d, ok := r.constraints[id]
	return d, ok
}

// RuleIDs returns rule ids in registration order.
func (r *Registry) RuleIDs() []string {
	return append([]string(nil), r.ruleOrder...)
}

// ConstraintIDs returns constraint ids in registration order.
func (r *Registry) ConstraintIDs() []string {
	return append([]string(nil), r.constraintOrder...)
}

// Rules returns rule descriptors in registration order.
func (r *Registry) Rules() []RuleDescriptor {
	out := make([]RuleDescriptor, len(r.ruleOrder))
	for i, id := range r.ruleOrder {
		out[i] = r.rules[id]
	}
	return out
}

// Constraints returns constraint descriptors in registration order.
func (r *Registry) Constraints() []ConstraintDescriptor {
	out := make([]ConstraintDescriptor, len(r.constraintOrder))
	for i, id := range r.constraintOrder {
		out[i] = r.constraints[id]
	}
	return out
}

// ContractGaps returns the gaps accumulated by registration-time checks.
func (r *Registry) ContractGaps() []contract.Gap {
	return append([]contract.Gap(nil), r.gaps...)
}

// ClearContractGaps resets the accumulated gap log.
func (r *Registry) ClearContractGaps() {
	r.gaps = nil
}
