package contract

import "time"

// DefaultVersion is the version assigned by Define when none is given.
const DefaultVersion = "1.0.0"

// Example is one Given/When/Then scenario illustrating a contract.
type Example struct {
	Given string `json:"given" yaml:"given" validate:"required"`
	When  string `json:"when" yaml:"when" validate:"required"`
	Then  string `json:"then" yaml:"then" validate:"required"`
}

// Impact names an artifact class an assumption influences.
type Impact string

const (
	ImpactSpec  Impact = "spec"
	ImpactTests Impact = "tests"
	ImpactCode  Impact = "code"
)

// AssumptionStatus is the lifecycle state of an assumption.
type AssumptionStatus string

const (
	AssumptionActive      AssumptionStatus = "active"
	AssumptionRevised     AssumptionStatus = "revised"
	AssumptionInvalidated AssumptionStatus = "invalidated"
)

// Assumption records something a contract author took for granted.
type Assumption struct {
	ID            string           `json:"id" yaml:"id" validate:"required"`
	Statement     string           `json:"statement" yaml:"statement" validate:"required"`
	Confidence    float64          `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
	Justification string           `json:"justification" yaml:"justification"`
	DerivedFrom   string           `json:"derivedFrom,omitempty" yaml:"derivedFrom,omitempty"`
	Impacts       []Impact         `json:"impacts" yaml:"impacts" validate:"dive,oneof=spec tests code"`
	Status        AssumptionStatus `json:"status" yaml:"status" validate:"omitempty,oneof=active revised invalidated"`
}

// HasImpact reports whether the assumption lists the given impact.
func (a Assumption) HasImpact(kind Impact) bool {
	for _, i := range a.Impacts {
		if i == kind {
			return true
		}
	}
	return false
}

// Reference links a contract to supporting material.
type Reference struct {
	Type        string `json:"type" yaml:"type"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Contract is the intended behavior of one rule or constraint.
type Contract struct {
	RuleID      string       `json:"ruleId" yaml:"ruleId" validate:"required"`
	Behavior    string       `json:"behavior" yaml:"behavior"`
	Examples    []Example    `json:"examples" yaml:"examples" validate:"min=1,dive"`
	Invariants  []string     `json:"invariants" yaml:"invariants"`
	Assumptions []Assumption `json:"assumptions,omitempty" yaml:"assumptions,omitempty" validate:"dive"`
	References  []Reference  `json:"references,omitempty" yaml:"references,omitempty"`
	Version     string       `json:"version" yaml:"version"`
	Timestamp   time.Time    `json:"timestamp" yaml:"timestamp"`
}

// Clone returns a copy of the contract sharing no slices with c.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	out.Examples = append([]Example(nil), c.Examples...)
	out.Invariants = append([]string(nil), c.Invariants...)
	if c.Assumptions != nil {
		out.Assumptions = make([]Assumption, len(c.Assumptions))
		for i, a := range c.Assumptions {
			a.Impacts = append([]Impact(nil), a.Impacts...)
			out.Assumptions[i] = a
		}
	}
	out.References = append([]Reference(nil), c.References...)
	return &out
}
