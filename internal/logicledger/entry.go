package logicledger

import (
	"time"

	"github.com/plures/praxis/internal/contract"
)

// Entry is one persisted contract version.
type Entry struct {
	RuleID          string                `json:"ruleId"`
	Version         int                   `json:"version"`
	Timestamp       time.Time             `json:"timestamp"`
	ContractVersion string                `json:"contractVersion"`
	Behavior        CanonicalBehavior     `json:"canonicalBehavior"`
	BehaviorHash    string                `json:"behaviorHash"`
	Assumptions     []contract.Assumption `json:"assumptions"`
	Artifacts       ArtifactFlags         `json:"artifacts"`
	Drift           Drift                 `json:"drift"`
}

// CanonicalBehavior is the part of a contract whose change counts as a
// behavior change.
type CanonicalBehavior struct {
	Behavior   string             `json:"behavior"`
	Examples   []contract.Example `json:"examples"`
	Invariants []string           `json:"invariants"`
}

// ArtifactFlags records which artifacts existed for the rule at write time.
type ArtifactFlags struct {
	Tests bool `json:"tests"`
	Spec  bool `json:"spec"`
}

// ChangeSummary classifies a version against its predecessor.
type ChangeSummary string

const (
	ChangeInitial  ChangeSummary = "initial"
	ChangeUpdated  ChangeSummary = "updated"
	ChangeNoChange ChangeSummary = "no-change"
)

// Conflict names a kind of incompatible change between versions.
type Conflict string

// ConflictBehaviorChanged is reported whenever the canonical behavior differs.
const ConflictBehaviorChanged Conflict = "behavior-changed"

// Drift is the difference between a version and the one before it.
type Drift struct {
	ChangeSummary          ChangeSummary `json:"changeSummary"`
	PreviousVersion        int           `json:"previousVersion,omitempty"`
	AssumptionsRevised     []string      `json:"assumptionsRevised"`
	AssumptionsInvalidated []string      `json:"assumptionsInvalidated"`
	Conflicts              []Conflict    `json:"conflicts"`
}

// HasConflict reports whether d lists c.
func (d Drift) HasConflict(c Conflict) bool {
	for _, got := range d.Conflicts {
		if got == c {
			return true
		}
	}
	return false
}

// Index maps rule ids to their storage directory relative to the ledger
// root.
type Index struct {
	ByRuleID map[string]string `json:"byRuleId"`
}
