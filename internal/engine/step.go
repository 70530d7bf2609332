package engine

import (
	"fmt"

	"github.com/plures/praxis/internal/protocol"
	"github.com/plures/praxis/internal/registry"
)

// Step evaluates every registered rule, then every registered constraint,
// in registration order.
func (e *Engine) Step(events []protocol.Event) protocol.StepResult {
	return e.StepWithConfig(events, protocol.StepConfig{
		RuleIDs:       e.registry.RuleIDs(),
		ConstraintIDs: e.registry.ConstraintIDs(),
	})
}

// StepWithConfig evaluates the configured rules in order, appends their
// facts to a new state, evaluates the configured constraints against that
// new state and commits it.
//
// StepWithConfig never panics and never returns an error. Unknown ids,
// failing rules and violated or failing constraints are reported as
// diagnostics, and evaluation continues.
func (e *Engine) StepWithConfig(events []protocol.Event, cfg protocol.StepConfig) protocol.StepResult {
	start := e.now()
	diags := []protocol.Diagnostic{}

	// Rules: every rule sees the state as it was before this step.
	var derived []protocol.Fact
	rulesRun := 0
	for _, id := range cfg.RuleIDs {
		d, ok := e.registry.Rule(id)
		if !ok {
			diags = append(diags, ruleNotFound(id))
			continue
		}
		rulesRun++
		facts, err := runRule(d, e.state.Clone(), cloneEvents(events))
		if err != nil {
			diags = append(diags, ruleFailed(id, err))
			continue
		}
		derived = append(derived, protocol.CloneFacts(facts)...)
	}

	next := e.state.Clone()
	next.Facts = append(next.Facts, derived...)

	// Constraints: validate the step's result, not its input.
	for _, id := range cfg.ConstraintIDs {
		d, ok := e.registry.Constraint(id)
		if !ok {
			diags = append(diags, constraintNotFound(id))
			continue
		}
		verdict, err := runConstraint(d, next.Clone())
		if err != nil {
			diags = append(diags, constraintFailed(id, err))
			continue
		}
		if !verdict.OK() {
			diags = append(diags, constraintViolated(id, verdict.Message()))
		}
	}

	// Commit regardless of diagnostics.
	e.state = next

	for _, d := range diags {
		e.logger.Debug("step diagnostic",
			"kind", d.Kind,
			"message", d.Message,
		)
	}

	e.notify(StepSummary{
		Events:      len(events),
		RulesRun:    rulesRun,
		FactsAdded:  len(derived),
		Diagnostics: diags,
		Duration:    e.now().Sub(start),
	})

	return protocol.StepResult{
		State:       e.state.Clone(),
		Diagnostics: diags,
	}
}

// runRule invokes a rule implementation inside the failure boundary.
func runRule(d registry.RuleDescriptor, state protocol.State, events []protocol.Event) ([]protocol.Fact, error) {
	return guard(func() ([]protocol.Fact, error) {
		return d.Impl(state, events)
	})
}

// runConstraint invokes a constraint implementation inside the failure boundary.
func runConstraint(d registry.ConstraintDescriptor, state protocol.State) (registry.Verdict, error) {
	return guard(func() (registry.Verdict, error) {
		return d.Impl(state)
	})
}

// guard runs fn, converting a panic into an error.
func guard[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			result = zero
			if pe, ok := p.(error); ok {
				err = fmt.Errorf("panic: %w", pe)
				return
			}
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func cloneEvents(events []protocol.Event) []protocol.Event {
	if events == nil {
		return nil
	}
	out := make([]protocol.Event, len(events))
	for i, ev := range events {
		out[i] = protocol.Event{Tag: ev.Tag, Payload: protocol.Clone(ev.Payload)}
	}
	return out
}

func ruleNotFound(id string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Kind:    protocol.DiagnosticRuleError,
		Message: fmt.Sprintf("rule %q not found", id),
		Data:    map[string]any{"ruleId": id},
	}
}

func ruleFailed(id string, err error) protocol.Diagnostic {
	return protocol.Diagnostic{
		Kind:    protocol.DiagnosticRuleError,
		Message: fmt.Sprintf("rule %q failed: %v", id, err),
		Data:    map[string]any{"ruleId": id, "error": err.Error()},
	}
}

func constraintNotFound(id string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Kind:    protocol.DiagnosticConstraintViolation,
		Message: fmt.Sprintf("constraint %q not found", id),
		Data:    map[string]any{"constraintId": id},
	}
}

func constraintFailed(id string, err error) protocol.Diagnostic {
	return protocol.Diagnostic{
		Kind:    protocol.DiagnosticConstraintViolation,
		Message: fmt.Sprintf("constraint %q failed: %v", id, err),
		Data:    map[string]any{"constraintId": id, "error": err.Error()},
	}
}

func constraintViolated(id, msg string) protocol.Diagnostic {
	if msg == "" {
		return protocol.Diagnostic{
			Kind:    protocol.DiagnosticConstraintViolation,
			Message: fmt.Sprintf("constraint %q violated", id),
			Data:    map[string]any{"constraintId": id},
		}
	}
	return protocol.Diagnostic{
		Kind:    protocol.DiagnosticConstraintViolation,
		Message: fmt.Sprintf("constraint %q violated: %s", id, msg),
		Data:    map[string]any{"constraintId": id, "message": msg},
	}
}
