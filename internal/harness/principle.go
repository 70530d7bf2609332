package harness

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/registry"
)

// ReferenceTypeScenario marks a contract reference whose URL is a scenario
// file path.
const ReferenceTypeScenario = "scenario"

// ScenarioNotFoundError is returned when a referenced scenario file doesn't exist.
type ScenarioNotFoundError struct {
	RuleID       string
	ScenarioPath string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf(
		"contract %q references scenario file %q which does not exist (resolved to: %s)",
		e.RuleID,
		e.ScenarioPath,
		e.ResolvedPath,
	)
}

// ScenarioRefs returns the scenario files referenced by c, resolved
// relative to baseDir. A contract without scenario references yields an
// empty slice.
func ScenarioRefs(c *contract.Contract, baseDir string) ([]string, error) {
	if c == nil {
		return []string{}, nil
	}

	paths := []string{}
	for _, ref := range c.References {
		if ref.Type != ReferenceTypeScenario {
			continue
		}
		resolved := ref.URL
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, resolved)
		}
		if _, err := os.Stat(resolved); os.IsNotExist(err) {
			return nil, &ScenarioNotFoundError{
				RuleID:       c.RuleID,
				ScenarioPath: ref.URL,
				ResolvedPath: resolved,
			}
		}
		paths = append(paths, resolved)
	}
	return paths, nil
}

// ValidationResult summarizes the scenarios run for a set of contracts.
type ValidationResult struct {
	TotalContracts int               `json:"total_contracts"`
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Skipped        int               `json:"skipped"` // Contracts without scenarios
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// OK reports whether no scenario failed.
func (r *ValidationResult) OK() bool {
	return r.Failed == 0
}

// ScenarioFailure is one contract scenario that could not be loaded, run,
// or did not pass.
type ScenarioFailure struct {
	RuleID       string `json:"rule_id"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// RunContracts runs every scenario referenced by the contracts attached to
// the rules and constraints of reg, in registration order. Each scenario
// runs against its own engine over reg.
func RunContracts(reg *registry.Registry, baseDir string, opts ...Option) *ValidationResult {
	result := &ValidationResult{}

	var carriers []contract.Carrier
	for _, d := range reg.Rules() {
		carriers = append(carriers, d)
	}
	for _, d := range reg.Constraints() {
		carriers = append(carriers, d)
	}

	for _, d := range carriers {
		c, ok := contract.FromDescriptor(d)
		if !ok {
			continue
		}
		result.TotalContracts++
		RunContract(result, c, reg, baseDir, opts...)
	}
	return result
}

// RunContract runs the scenarios referenced by c and accumulates the
// outcome into result.
func RunContract(result *ValidationResult, c *contract.Contract, reg *registry.Registry, baseDir string, opts ...Option) {
	paths, err := ScenarioRefs(c, baseDir)
	if err != nil {
		result.Failed++
		var path string
		var nf *ScenarioNotFoundError
		if errors.As(err, &nf) {
			path = nf.ScenarioPath
		}
		result.Failures = append(result.Failures, ScenarioFailure{
			RuleID:       c.RuleID,
			ScenarioPath: path,
			Error:        err.Error(),
		})
		return
	}

	if len(paths) == 0 {
		result.Skipped++
		return
	}

	for _, path := range paths {
		result.TotalScenarios++

		fail := func(format string, args ...any) {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				RuleID:       c.RuleID,
				ScenarioPath: path,
				Error:        fmt.Sprintf(format, args...),
			})
		}

		scenario, err := LoadScenario(path)
		if err != nil {
			fail("failed to load scenario: %v", err)
			continue
		}

		run, err := Run(scenario, reg, opts...)
		if err != nil {
			fail("scenario execution failed: %v", err)
			continue
		}
		if !run.Pass {
			fail("scenario assertions failed: %v", run.Errors)
			continue
		}

		result.Passed++
	}
}
