package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a sequence of engine steps and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Context is the initial application context of the engine.
	Context any `yaml:"context,omitempty"`

	// Steps are executed in order against a single engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the full trace and the final context.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// EventSpec is one input event of a step.
type EventSpec struct {
	Tag     string `yaml:"tag"`
	Payload any    `yaml:"payload,omitempty"`
}

// Step is one engine step.
type Step struct {
	Events []EventSpec `yaml:"events"`

	// Rules and Constraints restrict the step to the listed ids. An empty
	// list selects every registered rule or constraint.
	Rules       []string `yaml:"rules,omitempty"`
	Constraints []string `yaml:"constraints,omitempty"`

	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect lists what a single step must produce. A nil list is not
// checked; an empty list requires that nothing was produced.
type StepExpect struct {
	Facts       []string `yaml:"facts"`
	Diagnostics []string `yaml:"diagnostics"`
}

// Assertion validates the trace or the final context.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Tag selects facts (fact_contains, fact_count).
	Tag string `yaml:"tag,omitempty"`

	// Payload is a subset match against a fact payload (fact_contains).
	Payload any `yaml:"payload,omitempty"`

	// Count is the exact number of facts with Tag (fact_count).
	Count int `yaml:"count,omitempty"`

	// Tags is the expected relative order of facts (fact_order).
	Tags []string `yaml:"tags,omitempty"`

	// Kind and Message select a diagnostic (diagnostic_contains). Message
	// is a substring match.
	Kind    string `yaml:"kind,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Expect is a subset match against the final context (final_context).
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertFactContains       = "fact_contains"
	AssertFactCount          = "fact_count"
	AssertFactOrder          = "fact_order"
	AssertDiagnosticContains = "diagnostic_contains"
	AssertNoDiagnostics      = "no_diagnostics"
	AssertFinalContext       = "final_context"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		for j, ev := range step.Events {
			if ev.Tag == "" {
				return fmt.Errorf("steps[%d].events[%d]: tag is required", i, j)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFactContains:
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: tag is required for fact_contains", index)
		}
	case AssertFactCount:
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: tag is required for fact_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for fact_count", index)
		}
	case AssertFactOrder:
		if len(a.Tags) == 0 {
			return fmt.Errorf("assertions[%d]: tags list is required for fact_order", index)
		}
	case AssertDiagnosticContains:
		if a.Kind == "" && a.Message == "" {
			return fmt.Errorf("assertions[%d]: kind or message is required for diagnostic_contains", index)
		}
	case AssertNoDiagnostics:
	case AssertFinalContext:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_context", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
