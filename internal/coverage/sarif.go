package coverage

import (
	"github.com/plures/praxis/internal/contract"
)

// SARIF constants.
const (
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	SARIFTool    = "praxis-decision-ledger"

	// RuleNamespace prefixes the artifact name in SARIF rule ids.
	RuleNamespace = "decision-ledger/"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations"`
	Properties sarifProperties `json:"properties"`
}

type sarifLocation struct {
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations"`
}

type sarifLogicalLocation struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type sarifProperties struct {
	Missing []contract.Artifact `json:"missing"`
}

var ruleDescriptions = map[contract.Artifact]string{
	contract.ArtifactBehavior:   "Contract has no behavior description",
	contract.ArtifactExamples:   "Contract has no examples",
	contract.ArtifactInvariants: "Contract declares no invariants",
	contract.ArtifactTests:      "No tests cover the rule",
	contract.ArtifactSpec:       "No spec describes the rule",
	contract.ArtifactContract:   "Rule has no contract",
}

// SARIFRuleID returns the SARIF rule id for a gap, derived from its first
// missing artifact.
func SARIFRuleID(gap contract.Gap) string {
	if len(gap.Missing) == 0 {
		return RuleNamespace + "unknown"
	}
	return RuleNamespace + string(gap.Missing[0])
}

// SARIFLevel maps a gap severity to a SARIF result level.
func SARIFLevel(s contract.Severity) string {
	switch s {
	case contract.SeverityError:
		return "error"
	case contract.SeverityInfo:
		return "note"
	default:
		return "warning"
	}
}

// FormatSARIF renders every gap in the report as a SARIF 2.1.0 result.
// Driver rules are listed once each, in order of first use.
func FormatSARIF(r *Report) ([]byte, error) {
	gaps := r.Gaps()
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:  SARIFTool,
			Rules: []sarifRule{},
		}},
		Results: make([]sarifResult, 0, len(gaps)),
	}

	seen := make(map[string]bool)
	for _, gap := range gaps {
		id := SARIFRuleID(gap)
		if !seen[id] {
			seen[id] = true
			desc := "Contract gap"
			if len(gap.Missing) > 0 {
				if d, ok := ruleDescriptions[gap.Missing[0]]; ok {
					desc = d
				}
			}
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
				ID:               id,
				ShortDescription: sarifMessage{Text: desc},
			})
		}

		msg := gap.Message
		if msg == "" {
			msg = gap.RuleID + " is missing " + contract.JoinArtifacts(gap.Missing)
		}
		missing := gap.Missing
		if missing == nil {
			missing = []contract.Artifact{}
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:  id,
			Level:   SARIFLevel(gap.Severity),
			Message: sarifMessage{Text: msg},
			Locations: []sarifLocation{{
				LogicalLocations: []sarifLogicalLocation{{Name: gap.RuleID, Kind: "member"}},
			}},
			Properties: sarifProperties{Missing: missing},
		})
	}

	return encodeIndented(sarifLog{
		Schema:  SARIFSchema,
		Version: SARIFVersion,
		Runs:    []sarifRun{run},
	})
}
