package logicledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/protocol"
)

// canonicalize extracts the behavior triple from c.
func canonicalize(c *contract.Contract) CanonicalBehavior {
	examples := slices.Clone(c.Examples)
	if examples == nil {
		examples = []contract.Example{}
	}
	invariants := slices.Clone(c.Invariants)
	if invariants == nil {
		invariants = []string{}
	}
	return CanonicalBehavior{
		Behavior:   c.Behavior,
		Examples:   examples,
		Invariants: invariants,
	}
}

// canonicalBytes is the RFC 8785 encoding of the triple.
func (b CanonicalBehavior) canonicalBytes() ([]byte, error) {
	examples := make([]any, len(b.Examples))
	for i, ex := range b.Examples {
		examples[i] = map[string]any{"given": ex.Given, "when": ex.When, "then": ex.Then}
	}
	invariants := make([]any, len(b.Invariants))
	for i, inv := range b.Invariants {
		invariants[i] = inv
	}
	return protocol.MarshalCanonical(map[string]any{
		"behavior":   b.Behavior,
		"examples":   examples,
		"invariants": invariants,
	})
}

// serializedBytes is the plain JSON encoding of the triple. Unlike
// canonicalBytes it leaves string contents untouched, so texts that differ
// only in Unicode normalization still compare unequal.
func (b CanonicalBehavior) serializedBytes() ([]byte, error) {
	if b.Examples == nil {
		b.Examples = []contract.Example{}
	}
	if b.Invariants == nil {
		b.Invariants = []string{}
	}
	return json.Marshal(b)
}

// Hash returns the domain-separated hash of the canonical triple.
func (b CanonicalBehavior) Hash() (string, error) {
	data, err := b.canonicalBytes()
	if err != nil {
		return "", fmt.Errorf("hash behavior: %w", err)
	}
	return protocol.HashWithDomain(protocol.DomainBehavior, data), nil
}

// ComputeDrift compares a new behavior and assumption set against the prior
// entry. prior is nil for the first version of a rule.
func ComputeDrift(prior *Entry, next CanonicalBehavior, assumptions []contract.Assumption) (Drift, error) {
	d := Drift{
		AssumptionsRevised:     []string{},
		AssumptionsInvalidated: []string{},
		Conflicts:              []Conflict{},
	}
	if prior == nil {
		d.ChangeSummary = ChangeInitial
		return d, nil
	}
	d.PreviousVersion = prior.Version

	before, err := prior.Behavior.serializedBytes()
	if err != nil {
		return Drift{}, fmt.Errorf("serialize version %d: %w", prior.Version, err)
	}
	after, err := next.serializedBytes()
	if err != nil {
		return Drift{}, fmt.Errorf("serialize new version: %w", err)
	}
	if bytes.Equal(before, after) {
		d.ChangeSummary = ChangeNoChange
	} else {
		d.ChangeSummary = ChangeUpdated
		d.Conflicts = append(d.Conflicts, ConflictBehaviorChanged)
	}

	current := make(map[string]contract.Assumption, len(assumptions))
	for _, a := range assumptions {
		current[a.ID] = a
	}
	for _, old := range prior.Assumptions {
		now, ok := current[old.ID]
		if ok && (now.Statement != old.Statement || now.Status != old.Status) {
			d.AssumptionsRevised = append(d.AssumptionsRevised, old.ID)
		}
		if !ok || now.Status == contract.AssumptionInvalidated {
			d.AssumptionsInvalidated = append(d.AssumptionsInvalidated, old.ID)
		}
	}
	slices.Sort(d.AssumptionsRevised)
	slices.Sort(d.AssumptionsInvalidated)
	return d, nil
}
