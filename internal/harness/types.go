package harness

// Trace event types.
const (
	TraceTypeEvent      = "event"
	TraceTypeFact       = "fact"
	TraceTypeDiagnostic = "diagnostic"
)

// TraceEvent is one input, derived fact or diagnostic of a scenario run.
type TraceEvent struct {
	Type    string `json:"type"` // "event", "fact" or "diagnostic"
	Step    int    `json:"step"` // 1-based step index
	Tag     string `json:"tag,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds, per step, the step's events, then the facts it
	// derived, then its diagnostics.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Context is the engine context after the last step.
	Context any `json:"context,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Facts returns the fact events of the trace in order.
func (r *Result) Facts() []TraceEvent {
	return r.filter(TraceTypeFact)
}

// Diagnostics returns the diagnostic events of the trace in order.
func (r *Result) Diagnostics() []TraceEvent {
	return r.filter(TraceTypeDiagnostic)
}

func (r *Result) filter(typ string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
