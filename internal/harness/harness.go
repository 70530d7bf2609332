package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/plures/praxis/internal/engine"
	"github.com/plures/praxis/internal/protocol"
	"github.com/plures/praxis/internal/registry"
)

// Option configures a scenario run.
type Option func(*runner)

// WithLogger sets the logger of the engine under test. Runs are silent by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		r.logger = logger
	}
}

// WithEngineOptions passes additional options to the engine under test,
// applied after the scenario context.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(r *runner) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

type runner struct {
	logger     *slog.Logger
	engineOpts []engine.Option
}

// Run executes a scenario against a fresh engine over reg.
//
// Expectation and assertion failures are reported through Result.Pass and
// Result.Errors. An error is returned only when the scenario cannot be
// executed at all.
func Run(scenario *Scenario, reg *registry.Registry, opts ...Option) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("scenario %q: registry is nil", scenario.Name)
	}

	r := &runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	engOpts := []engine.Option{engine.WithLogger(r.logger)}
	if scenario.Context != nil {
		engOpts = append(engOpts, engine.WithInitialContext(scenario.Context))
	}
	eng := engine.New(reg, append(engOpts, r.engineOpts...)...)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := r.executeStep(eng, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	finalContext, err := normalize(eng.Context())
	if err != nil {
		return nil, fmt.Errorf("final context: %w", err)
	}
	result.Context = finalContext

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and appends its events, derived facts and
// diagnostics to the trace.
func (r *runner) executeStep(eng *engine.Engine, n int, step Step, result *Result) error {
	events := make([]protocol.Event, len(step.Events))
	for i, ev := range step.Events {
		payload, err := normalize(ev.Payload)
		if err != nil {
			return fmt.Errorf("event %q: %w", ev.Tag, err)
		}
		events[i] = protocol.NewEvent(ev.Tag, payload)
		result.Trace = append(result.Trace, TraceEvent{
			Type:    TraceTypeEvent,
			Step:    n,
			Tag:     ev.Tag,
			Payload: payload,
		})
	}

	cfg := protocol.StepConfig{
		RuleIDs:       step.Rules,
		ConstraintIDs: step.Constraints,
	}
	if len(cfg.RuleIDs) == 0 {
		cfg.RuleIDs = eng.Registry().RuleIDs()
	}
	if len(cfg.ConstraintIDs) == 0 {
		cfg.ConstraintIDs = eng.Registry().ConstraintIDs()
	}

	before := len(eng.Facts())
	res := eng.StepWithConfig(events, cfg)

	var factTags []string
	for _, f := range res.State.Facts[before:] {
		payload, err := normalize(f.Payload)
		if err != nil {
			return fmt.Errorf("fact %q: %w", f.Tag, err)
		}
		factTags = append(factTags, f.Tag)
		result.Trace = append(result.Trace, TraceEvent{
			Type:    TraceTypeFact,
			Step:    n,
			Tag:     f.Tag,
			Payload: payload,
		})
	}

	var kinds []string
	for _, d := range res.Diagnostics {
		kinds = append(kinds, string(d.Kind))
		result.Trace = append(result.Trace, TraceEvent{
			Type:    TraceTypeDiagnostic,
			Step:    n,
			Kind:    string(d.Kind),
			Message: d.Message,
		})
	}

	if step.Expect == nil {
		return nil
	}
	if step.Expect.Facts != nil && !slices.Equal(step.Expect.Facts, factTags) {
		result.AddError(fmt.Sprintf("step %d: expected facts %v, got %v", n, step.Expect.Facts, factTags))
	}
	if step.Expect.Diagnostics != nil && !slices.Equal(step.Expect.Diagnostics, kinds) {
		result.AddError(fmt.Sprintf("step %d: expected diagnostics %v, got %v", n, step.Expect.Diagnostics, kinds))
	}
	return nil
}

// normalize converts v to its JSON data model: objects become
// map[string]any, arrays []any and numbers json.Number. YAML input and Go
// values produced by rules compare equal after normalization.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("payload is not JSON-serializable: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
