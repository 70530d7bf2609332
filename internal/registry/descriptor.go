package registry

import (
	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/protocol"
)

// RuleFunc derives new facts from the current state and the step's events.
// It must be pure: the state it receives is a private copy.
type RuleFunc func(state protocol.State, events []protocol.Event) ([]protocol.Fact, error)

// ConstraintFunc checks an invariant against the state produced by a step.
type ConstraintFunc func(state protocol.State) (Verdict, error)

// Verdict is the outcome of a constraint check.
type Verdict struct {
	ok      bool
	message string
}

// Pass reports a satisfied constraint.
func Pass() Verdict { return Verdict{ok: true} }

// Fail reports a violation without a specific message.
func Fail() Verdict { return Verdict{} }

// Violation reports a violation carrying msg. An empty msg is equivalent
// to Fail.
func Violation(msg string) Verdict { return Verdict{message: msg} }

// Check converts a boolean into a verdict, using msg when ok is false.
func Check(ok bool, msg string) Verdict {
	if ok {
		return Pass()
	}
	return Violation(msg)
}

// OK reports whether the constraint was satisfied.
func (v Verdict) OK() bool { return v.ok }

// Message returns the violation message, empty for generic violations.
func (v Verdict) Message() string { return v.message }

// RuleDescriptor describes a registered rule.
type RuleDescriptor struct {
	ID          string
	Description string
	Impl        RuleFunc
	Contract    *contract.Contract
	Meta        map[string]any
}

// AttachedContract implements contract.Carrier.
func (d RuleDescriptor) AttachedContract() *contract.Contract { return d.Contract }

// Metadata implements contract.Carrier.
func (d RuleDescriptor) Metadata() map[string]any { return d.Meta }

// ConstraintDescriptor describes a registered constraint.
type ConstraintDescriptor struct {
	ID          string
	Description string
	Impl        ConstraintFunc
	Contract    *contract.Contract
	Meta        map[string]any
}

// AttachedContract implements contract.Carrier.
func (d ConstraintDescriptor) AttachedContract() *contract.Contract { return d.Contract }

// Metadata implements contract.Carrier.
func (d ConstraintDescriptor) Metadata() map[string]any { return d.Meta }

// Module is a bundle of rules and constraints registered together.
type Module struct {
	Rules       []RuleDescriptor
	Constraints []ConstraintDescriptor
}
