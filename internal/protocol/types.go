package protocol

// Fact is a tagged proposition appended to engine state by rules.
// Facts are immutable once created and are removed only by an explicit
// clear or reset.
type Fact struct {
	Tag     string `json:"tag"`
	Payload any    `json:"payload,omitempty"`
}

// Event is an ephemeral tagged input processed during one step.
// Events are never retained in State.
type Event struct {
	Tag     string `json:"tag"`
	Payload any    `json:"payload,omitempty"`
}

// NewFact creates a Fact with the given tag and payload.
func NewFact(tag string, payload any) Fact {
	return Fact{Tag: tag, Payload: payload}
}

// NewEvent creates an Event with the given tag and payload.
func NewEvent(tag string, payload any) Event {
	return Event{Tag: tag, Payload: payload}
}

// State is the single mutable aggregate owned by an engine.
type State struct {
	Context         any            `json:"context"`
	Facts           []Fact         `json:"facts"`
	Meta            map[string]any `json:"meta,omitempty"`
	ProtocolVersion string         `json:"protocolVersion,omitempty"`
}

// FactsByTag returns the facts carrying the given tag, in state order.
func (s State) FactsByTag(tag string) []Fact {
	var out []Fact
	for _, f := range s.Facts {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// DiagnosticKind categorizes diagnostics produced by a step.
type DiagnosticKind string

const (
	// DiagnosticRuleError reports a rule that was not found or failed.
	DiagnosticRuleError DiagnosticKind = "rule-error"

	// DiagnosticConstraintViolation reports a constraint that was not
	// found, failed, or returned a violation.
	DiagnosticConstraintViolation DiagnosticKind = "constraint-violation"
)

// Diagnostic is an advisory record of a rule failure or constraint
// violation. Diagnostics never block state commitment and are never
// stored in State.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// StepConfig selects the rules and constraints evaluated by one step.
// Ids are evaluated in slice order.
type StepConfig struct {
	RuleIDs       []string `json:"ruleIds"`
	ConstraintIDs []string `json:"constraintIds"`
}

// StepResult is the outcome of one step: the committed state and the
// diagnostics produced while computing it.
type StepResult struct {
	State       State        `json:"state"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasDiagnostics reports whether any diagnostic of the given kind was
// produced. An empty kind matches every diagnostic.
func (r StepResult) HasDiagnostics(kind DiagnosticKind) bool {
	for _, d := range r.Diagnostics {
		if kind == "" || d.Kind == kind {
			return true
		}
	}
	return false
}
