package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoExamples is returned by Define when a contract has no examples.
var ErrNoExamples = errors.New("contract must have at least one example")

// Options are the inputs to Define.
type Options struct {
	RuleID      string
	Behavior    string
	Examples    []Example
	Invariants  []string
	Assumptions []Assumption
	References  []Reference

	// Version defaults to DefaultVersion.
	Version string

	// Timestamp defaults to Now().
	Timestamp time.Time

	// Now overrides the clock used for the default timestamp.
	Now func() time.Time
}

// Define builds a Contract. It fails with ErrNoExamples when opts carries no
// examples; no other completeness check happens here.
func Define(opts Options) (*Contract, error) {
	if len(opts.Examples) == 0 {
		return nil, fmt.Errorf("define contract %q: %w", opts.RuleID, ErrNoExamples)
	}

	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}
	ts := opts.Timestamp
	if ts.IsZero() {
		now := opts.Now
		if now == nil {
			now = time.Now
		}
		ts = now().UTC()
	}

	c := &Contract{
		RuleID:      opts.RuleID,
		Behavior:    opts.Behavior,
		Examples:    append([]Example(nil), opts.Examples...),
		Invariants:  append([]string(nil), opts.Invariants...),
		Assumptions: normalizeAssumptions(opts.Assumptions),
		References:  append([]Reference(nil), opts.References...),
		Version:     version,
		Timestamp:   ts,
	}
	return c, nil
}

// MustDefine is like Define but panics on error.
// Use only in tests or for contracts declared at package init.
func MustDefine(opts Options) *Contract {
	c, err := Define(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// normalizeAssumptions copies assumptions and defaults status to active.
func normalizeAssumptions(in []Assumption) []Assumption {
	if in == nil {
		return nil
	}
	out := make([]Assumption, len(in))
	for i, a := range in {
		if a.Status == "" {
			a.Status = AssumptionActive
		}
		a.Impacts = append([]Impact(nil), a.Impacts...)
		out[i] = a
	}
	return out
}

// Carrier is implemented by rule and constraint descriptors.
type Carrier interface {
	// AttachedContract returns the first-class contract field, or nil.
	AttachedContract() *Contract

	// Metadata returns the descriptor's free-form metadata, or nil.
	Metadata() map[string]any
}

// FromDescriptor extracts the contract attached to a descriptor, either as the
// first-class field or nested under meta["contract"]. A nested value is only
// trusted after a structural check.
func FromDescriptor(d Carrier) (*Contract, bool) {
	if c := d.AttachedContract(); c != nil {
		return c, true
	}
	meta := d.Metadata()
	if meta == nil {
		return nil, false
	}
	return fromMeta(meta["contract"])
}

func fromMeta(v any) (*Contract, bool) {
	switch val := v.(type) {
	case *Contract:
		return val, val != nil
	case Contract:
		return &val, true
	case map[string]any:
		if !looksLikeContract(val) {
			return nil, false
		}
		data, err := json.Marshal(val)
		if err != nil {
			return nil, false
		}
		var c Contract
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, false
		}
		return &c, true
	default:
		return nil, false
	}
}

// looksLikeContract requires a string ruleId, a string behavior and a list of
// examples.
func looksLikeContract(m map[string]any) bool {
	if _, ok := m["ruleId"].(string); !ok {
		return false
	}
	if _, ok := m["behavior"].(string); !ok {
		return false
	}
	switch m["examples"].(type) {
	case []any, []map[string]any, []Example:
		return true
	default:
		return false
	}
}
