package contract

import (
	"fmt"
	"strings"
)

// Artifact names a piece of a contract, or an artifact derived from it,
// that can be missing.
type Artifact string

const (
	ArtifactBehavior   Artifact = "behavior"
	ArtifactExamples   Artifact = "examples"
	ArtifactInvariants Artifact = "invariants"
	ArtifactTests      Artifact = "tests"
	ArtifactSpec       Artifact = "spec"
	ArtifactContract   Artifact = "contract"
)

// DefaultRequiredFields are the contract fields checked when no explicit
// list is configured.
var DefaultRequiredFields = []Artifact{ArtifactBehavior, ArtifactExamples, ArtifactInvariants}

// Severity grades a contract gap.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity converts a configuration string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityInfo:
		return SeverityInfo, nil
	default:
		return "", fmt.Errorf("invalid severity %q: must be one of error, warning, info", s)
	}
}

// Gap reports that a contract is absent or missing required parts.
type Gap struct {
	RuleID   string     `json:"ruleId"`
	Missing  []Artifact `json:"missing"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message,omitempty"`
}

// MissingFields returns the required fields that are empty in c, in the
// order they are listed in required. Only behavior, examples and invariants
// are properties of the contract itself; other artifacts are ignored here.
func MissingFields(c *Contract, required []Artifact) []Artifact {
	if required == nil {
		required = DefaultRequiredFields
	}
	var missing []Artifact
	for _, field := range required {
		switch field {
		case ArtifactBehavior:
			if strings.TrimSpace(c.Behavior) == "" {
				missing = append(missing, field)
			}
		case ArtifactExamples:
			if len(c.Examples) == 0 {
				missing = append(missing, field)
			}
		case ArtifactInvariants:
			if len(c.Invariants) == 0 {
				missing = append(missing, field)
			}
		}
	}
	return missing
}

// JoinArtifacts renders artifacts as a comma separated list.
func JoinArtifacts(artifacts []Artifact) string {
	parts := make([]string, len(artifacts))
	for i, a := range artifacts {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}
