package engine

import (
	"log/slog"
	"time"

	"github.com/plures/praxis/internal/protocol"
	"github.com/plures/praxis/internal/registry"
)

// Engine applies registered rules and constraints to its state.
//
// INVARIANTS:
//   - state.Facts only grows during Step; only ClearFacts and Reset shrink it
//   - No reference to state is handed to callers or to rule implementations
type Engine struct {
	registry  *registry.Registry
	state     protocol.State
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithInitialContext sets the application context of the initial state.
func WithInitialContext(ctx any) Option {
	return func(e *Engine) {
		e.state.Context = protocol.Clone(ctx)
	}
}

// WithInitialFacts seeds the initial state with facts.
func WithInitialFacts(facts ...protocol.Fact) Option {
	return func(e *Engine) {
		e.state.Facts = append(e.state.Facts, protocol.CloneFacts(facts)...)
	}
}

// WithMeta sets the state metadata.
func WithMeta(meta map[string]any) Option {
	return func(e *Engine) {
		e.state.Meta = protocol.CloneMap(meta)
	}
}

// WithLogger sets the logger used for step diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver registers an observer notified after every step.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// New creates an engine over reg. The registry is read at every step, so
// descriptors registered after New are visible to later steps.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		state: protocol.State{
			Facts:           []protocol.Fact{},
			ProtocolVersion: protocol.ProtocolVersion,
		},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine evaluates.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// State returns a deep copy of the current state.
func (e *Engine) State() protocol.State {
	return e.state.Clone()
}

// Context returns a deep copy of the application context.
func (e *Engine) Context() any {
	return protocol.Clone(e.state.Context)
}

// Facts returns a deep copy of the accumulated facts.
func (e *Engine) Facts() []protocol.Fact {
	return protocol.CloneFacts(e.state.Facts)
}

// UpdateContext replaces the context with the result of fn.
// fn receives a copy of the current context.
//
// This bypasses rule evaluation. Prefer modeling changes as facts.
func (e *Engine) UpdateContext(fn func(ctx any) any) {
	e.state.Context = protocol.Clone(fn(protocol.Clone(e.state.Context)))
}

// AddFacts appends facts directly, bypassing rule evaluation.
func (e *Engine) AddFacts(facts ...protocol.Fact) {
	e.state.Facts = append(e.state.Facts, protocol.CloneFacts(facts)...)
}

// ClearFacts removes every accumulated fact. Context and meta are kept.
func (e *Engine) ClearFacts() {
	e.state.Facts = []protocol.Fact{}
}

// ResetOptions describes the state Reset reinitializes to.
type ResetOptions struct {
	Context any
	Facts   []protocol.Fact
	Meta    map[string]any
}

// Reset fully reinitializes context, facts and meta.
func (e *Engine) Reset(opts ResetOptions) {
	facts := protocol.CloneFacts(opts.Facts)
	if facts == nil {
		facts = []protocol.Fact{}
	}
	e.state = protocol.State{
		Context:         protocol.Clone(opts.Context),
		Facts:           facts,
		Meta:            protocol.CloneMap(opts.Meta),
		ProtocolVersion: protocol.ProtocolVersion,
	}
}
