package behaviorledger

import (
	"log/slog"
	"slices"
	"time"

	"github.com/plures/praxis/internal/contract"
)

// Ledger is an append-only log of contract versions.
//
// INVARIANTS:
//   - history is never reordered and its records are never rewritten
//   - status has exactly one key per history entry
//   - at most one status transition per entry: active -> superseded or
//     active -> deprecated
type Ledger struct {
	history  []Entry
	position map[string]int
	status   map[string]Status
	ops      []op

	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger
}

// op is one mutation, kept so that export can replay mutations in order.
type op struct {
	deprecate *Deprecation
	entry     int
}

// Deprecation records a Deprecate call.
type Deprecation struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator sets the generator used by Record.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Ledger) {
		l.ids = g
	}
}

// WithClock sets the clock used by Record and Deprecate.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger sets the ledger's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		position: make(map[string]int),
		status:   make(map[string]Status),
		ids:      UUIDv7Generator{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record builds an entry for c with a generated id and appends it.
func (l *Ledger) Record(c *contract.Contract, author string, opts ...EntryOption) (Entry, error) {
	e := buildEntry(l.ids.Generate(), l.now().UTC(), c, author, opts)
	if err := l.Append(e); err != nil {
		return Entry{}, err
	}
	return e.clone(), nil
}

// Append adds an entry to the ledger.
//
// Append fails with a DuplicateEntryError if the id is already present, and
// with an INVALID_ENTRY LedgerError if the entry has no id, has no contract,
// or supersedes itself.
// If the entry supersedes a currently active entry for the same rule, that
// entry's status becomes superseded. A supersedes reference to an unknown,
// inactive, or foreign-rule entry is recorded but has no effect.
func (l *Ledger) Append(e Entry) error {
	if e.ID == "" {
		return &LedgerError{Code: ErrCodeInvalidEntry, Message: "entry id is required"}
	}
	if e.Contract == nil {
		return &LedgerError{Code: ErrCodeInvalidEntry, EntryID: e.ID, Message: "entry has no contract"}
	}
	if e.Supersedes == e.ID {
		return &LedgerError{Code: ErrCodeInvalidEntry, EntryID: e.ID, Message: "entry cannot supersede itself"}
	}
	if _, exists := l.position[e.ID]; exists {
		return &DuplicateEntryError{ID: e.ID}
	}
	if e.Status == "" {
		e.Status = StatusActive
	}

	e = e.clone()
	l.position[e.ID] = len(l.history)
	l.history = append(l.history, e)
	l.status[e.ID] = e.Status
	l.ops = append(l.ops, op{entry: len(l.history) - 1})

	if e.Supersedes != "" {
		l.supersede(e)
	}

	l.logger.Debug("ledger entry appended",
		"entry_id", e.ID,
		"rule_id", e.RuleID(),
		"supersedes", e.Supersedes,
	)
	return nil
}

func (l *Ledger) supersede(e Entry) {
	pos, ok := l.position[e.Supersedes]
	if !ok {
		l.logger.Debug("supersedes unknown entry", "entry_id", e.ID, "supersedes", e.Supersedes)
		return
	}
	target := l.history[pos]
	if l.status[target.ID] != StatusActive || target.RuleID() != e.RuleID() {
		l.logger.Debug("supersedes reference ignored",
			"entry_id", e.ID,
			"supersedes", e.Supersedes,
			"target_status", l.status[target.ID],
			"target_rule_id", target.RuleID(),
		)
		return
	}
	l.status[target.ID] = StatusSuperseded
}

// Deprecate marks an active entry as deprecated. The history record is not
// changed.
func (l *Ledger) Deprecate(id, reason string) error {
	return l.deprecate(Deprecation{ID: id, Reason: reason, Timestamp: l.now().UTC()})
}

func (l *Ledger) deprecate(d Deprecation) error {
	id := d.ID
	status, ok := l.status[id]
	if !ok {
		return &LedgerError{Code: ErrCodeUnknownEntry, EntryID: id, Message: "no such entry"}
	}
	if status != StatusActive {
		return &LedgerError{Code: ErrCodeNotActive, EntryID: id, Message: "entry is " + string(status)}
	}
	l.status[id] = StatusDeprecated
	l.ops = append(l.ops, op{deprecate: &d})
	return nil
}

// Entry returns the entry with the given id and its current status.
func (l *Ledger) Entry(id string) (Entry, bool) {
	pos, ok := l.position[id]
	if !ok {
		return Entry{}, false
	}
	return l.current(pos), true
}

// LatestEntry returns the most recently appended active entry for ruleID.
func (l *Ledger) LatestEntry(ruleID string) (Entry, bool) {
	for i := len(l.history) - 1; i >= 0; i-- {
		e := l.history[i]
		if e.RuleID() == ruleID && l.status[e.ID] == StatusActive {
			return l.current(i), true
		}
	}
	return Entry{}, false
}

// AllEntries returns every entry in append order with its current status.
func (l *Ledger) AllEntries() []Entry {
	out := make([]Entry, len(l.history))
	for i := range l.history {
		out[i] = l.current(i)
	}
	return out
}

// History returns every entry exactly as appended.
func (l *Ledger) History() []Entry {
	out := make([]Entry, len(l.history))
	for i, e := range l.history {
		out[i] = e.clone()
	}
	return out
}

// EntriesForRule returns the entries for ruleID in append order with their
// current status.
func (l *Ledger) EntriesForRule(ruleID string) []Entry {
	var out []Entry
	for i, e := range l.history {
		if e.RuleID() == ruleID {
			out = append(out, l.current(i))
		}
	}
	return out
}

// ActiveAssumptions returns the active assumptions of all active entries,
// keyed by assumption id. When several entries declare the same id, the
// most recently appended one wins.
func (l *Ledger) ActiveAssumptions() map[string]contract.Assumption {
	out := make(map[string]contract.Assumption)
	for _, e := range l.history {
		if l.status[e.ID] != StatusActive {
			continue
		}
		for _, a := range e.Contract.Assumptions {
			if a.Status == contract.AssumptionActive {
				a.Impacts = slices.Clone(a.Impacts)
				out[a.ID] = a
			}
		}
	}
	return out
}

// AssumptionsByImpact returns the active assumptions that list kind among
// their impacts, sorted by id.
func (l *Ledger) AssumptionsByImpact(kind contract.Impact) []contract.Assumption {
	var out []contract.Assumption
	for _, a := range l.ActiveAssumptions() {
		if a.HasImpact(kind) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b contract.Assumption) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Stats summarizes the ledger.
type Stats struct {
	Total             int `json:"total"`
	Active            int `json:"active"`
	Superseded        int `json:"superseded"`
	Deprecated        int `json:"deprecated"`
	Rules             int `json:"rules"`
	ActiveAssumptions int `json:"activeAssumptions"`
}

// Stats returns entry counts by status, the number of distinct rules and
// the number of active assumptions.
func (l *Ledger) Stats() Stats {
	s := Stats{Total: len(l.history)}
	rules := make(map[string]struct{})
	for _, e := range l.history {
		rules[e.RuleID()] = struct{}{}
		switch l.status[e.ID] {
		case StatusActive:
			s.Active++
		case StatusSuperseded:
			s.Superseded++
		case StatusDeprecated:
			s.Deprecated++
		}
	}
	s.Rules = len(rules)
	s.ActiveAssumptions = len(l.ActiveAssumptions())
	return s
}

func (l *Ledger) current(pos int) Entry {
	e := l.history[pos].clone()
	e.Status = l.status[e.ID]
	return e
}
