package engine

import (
	"time"

	"github.com/plures/praxis/internal/protocol"
)

// StepSummary describes one completed step.
type StepSummary struct {
	Events      int
	RulesRun    int
	FactsAdded  int
	Diagnostics []protocol.Diagnostic
	Duration    time.Duration
}

// Count returns the number of diagnostics of the given kind.
func (s StepSummary) Count(kind protocol.DiagnosticKind) int {
	n := 0
	for _, d := range s.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Observer is notified after every step. Observers must not call back into
// the engine.
type Observer interface {
	ObserveStep(StepSummary)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(StepSummary)

// ObserveStep implements Observer.
func (f ObserverFunc) ObserveStep(s StepSummary) { f(s) }

// notify delivers a summary to every observer. A panicking observer is
// logged and skipped so that Step keeps its no-panic guarantee.
func (e *Engine) notify(s StepSummary) {
	for _, o := range e.observers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					e.logger.Error("step observer panicked", "panic", p)
				}
			}()
			o.ObserveStep(s)
		}()
	}
}
