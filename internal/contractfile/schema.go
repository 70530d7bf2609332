package contractfile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/plures/praxis/internal/contract"
)

// yamlDoc is the YAML manifest shape.
type yamlDoc struct {
	Rules       []descriptorSpec `yaml:"rules"`
	Constraints []descriptorSpec `yaml:"constraints"`
	Artifacts   artifactSpec     `yaml:"artifacts"`
}

type descriptorSpec struct {
	ID          string        `yaml:"id" json:"id" validate:"required"`
	Description string        `yaml:"description" json:"description"`
	Contract    *contractSpec `yaml:"contract" json:"contract" validate:"omitempty"`
}

type contractSpec struct {
	Behavior    string                `yaml:"behavior" json:"behavior"`
	Examples    []contract.Example    `yaml:"examples" json:"examples" validate:"min=1,dive"`
	Invariants  []string              `yaml:"invariants" json:"invariants" validate:"dive,required"`
	Assumptions []contract.Assumption `yaml:"assumptions" json:"assumptions" validate:"dive"`
	References  []contract.Reference  `yaml:"references" json:"references"`
	Version     string                `yaml:"version" json:"version"`
	Timestamp   time.Time             `yaml:"timestamp" json:"timestamp"`
}

type artifactSpec struct {
	Tests []string `yaml:"tests" json:"tests"`
	Specs []string `yaml:"specs" json:"specs"`
}

var validate = validator.New()

// build validates spec and turns it into a descriptor.
func build(spec descriptorSpec, kind Kind, source string, now func() time.Time) (Descriptor, error) {
	if err := validateSpec(spec); err != nil {
		return Descriptor{}, err
	}
	d := Descriptor{
		ID:          spec.ID,
		Kind:        kind,
		Description: spec.Description,
		Source:      source,
	}
	if spec.Contract == nil {
		return d, nil
	}

	c, err := contract.Define(contract.Options{
		RuleID:      spec.ID,
		Behavior:    spec.Contract.Behavior,
		Examples:    spec.Contract.Examples,
		Invariants:  spec.Contract.Invariants,
		Assumptions: spec.Contract.Assumptions,
		References:  spec.Contract.References,
		Version:     spec.Contract.Version,
		Timestamp:   spec.Contract.Timestamp,
		Now:         now,
	})
	if err != nil {
		return Descriptor{}, err
	}
	d.Contract = c
	return d, nil
}

func validateSpec(spec descriptorSpec) error {
	err := validate.Struct(spec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "descriptorSpec."), fe.Tag())
	}
	return errors.New(strings.Join(problems, "; "))
}
