package contractfile

import (
	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/coverage"
	"github.com/plures/praxis/internal/protocol"
	"github.com/plures/praxis/internal/registry"
)

// Kind distinguishes rules from constraints.
type Kind string

const (
	KindRule       Kind = "rule"
	KindConstraint Kind = "constraint"
)

// Descriptor is one declared rule or constraint.
type Descriptor struct {
	ID          string
	Kind        Kind
	Description string
	Contract    *contract.Contract
	Source      string
}

// Manifest is the merged content of one or more contract files.
type Manifest struct {
	Descriptors []Descriptor
	Tests       []string
	Specs       []string
	Files       []string
}

// Contracts returns the contracts of every descriptor that declares one.
func (m *Manifest) Contracts() []*contract.Contract {
	var out []*contract.Contract
	for _, d := range m.Descriptors {
		if d.Contract != nil {
			out = append(out, d.Contract)
		}
	}
	return out
}

// ArtifactIndex returns the declared test and spec coverage, or nil when
// the manifest declares none.
func (m *Manifest) ArtifactIndex() coverage.ArtifactIndex {
	if len(m.Tests) == 0 && len(m.Specs) == 0 {
		return nil
	}
	return coverage.NewStaticIndex(m.Tests, m.Specs)
}

// Registry registers every descriptor, rules and constraints in file
// order, with implementations that do nothing: declared rules derive no
// facts and declared constraints always pass.
func (m *Manifest) Registry(opts ...registry.Option) (*registry.Registry, error) {
	reg := registry.New(opts...)
	for _, d := range m.Descriptors {
		var err error
		switch d.Kind {
		case KindRule:
			err = reg.RegisterRule(registry.RuleDescriptor{
				ID:          d.ID,
				Description: d.Description,
				Impl:        declaredRule,
				Contract:    d.Contract,
				Meta:        map[string]any{"source": d.Source},
			})
		case KindConstraint:
			err = reg.RegisterConstraint(registry.ConstraintDescriptor{
				ID:          d.ID,
				Description: d.Description,
				Impl:        declaredConstraint,
				Contract:    d.Contract,
				Meta:        map[string]any{"source": d.Source},
			})
		}
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func declaredRule(protocol.State, []protocol.Event) ([]protocol.Fact, error) { return nil, nil }

func declaredConstraint(protocol.State) (registry.Verdict, error) { return registry.Pass(), nil }

func (m *Manifest) merge(other *Manifest) {
	m.Descriptors = append(m.Descriptors, other.Descriptors...)
	m.Tests = append(m.Tests, other.Tests...)
	m.Specs = append(m.Specs, other.Specs...)
	m.Files = append(m.Files, other.Files...)
}
