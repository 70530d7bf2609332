package behaviorledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/plures/praxis/internal/contract"
)

// Status is the queryable state of a ledger entry.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusDeprecated Status = "deprecated"
)

// Entry records one contract version.
type Entry struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Status     Status             `json:"status"`
	Author     string             `json:"author"`
	Contract   *contract.Contract `json:"contract"`
	Supersedes string             `json:"supersedes,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}

// RuleID returns the id of the rule the entry's contract describes.
func (e Entry) RuleID() string {
	if e.Contract == nil {
		return ""
	}
	return e.Contract.RuleID
}

func (e Entry) clone() Entry {
	e.Contract = e.Contract.Clone()
	return e
}

// EntryOption configures an entry built by NewEntry or Ledger.Record.
type EntryOption func(*Entry)

// Supersedes marks the new entry as replacing the entry with the given id.
func Supersedes(id, reason string) EntryOption {
	return func(e *Entry) {
		e.Supersedes = id
		e.Reason = reason
	}
}

// WithReason sets the entry's reason without superseding anything.
func WithReason(reason string) EntryOption {
	return func(e *Entry) {
		e.Reason = reason
	}
}

// NewEntry builds an active entry with a UUIDv7 id and the current time.
func NewEntry(c *contract.Contract, author string, opts ...EntryOption) Entry {
	return buildEntry(UUIDv7Generator{}.Generate(), time.Now().UTC(), c, author, opts)
}

func buildEntry(id string, ts time.Time, c *contract.Contract, author string, opts []EntryOption) Entry {
	e := Entry{
		ID:        id,
		Timestamp: ts,
		Status:    StatusActive,
		Author:    author,
		Contract:  c.Clone(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// IDGenerator produces entry ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 entry ids.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
