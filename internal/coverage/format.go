package coverage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/plures/praxis/internal/contract"
)

// Text markers for each bucket.
const (
	markComplete   = "[x]"
	markIncomplete = "[~]"
	markMissing    = "[ ]"
)

// FormatText renders the report as a checklist.
func FormatText(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contract coverage (%s)\n", r.Timestamp.UTC().Format(time.RFC3339))

	if len(r.Complete) > 0 {
		fmt.Fprintf(&b, "\nComplete (%d)\n", len(r.Complete))
		for _, id := range r.Complete {
			fmt.Fprintf(&b, "  %s %s\n", markComplete, id)
		}
	}
	if len(r.Incomplete) > 0 {
		fmt.Fprintf(&b, "\nIncomplete (%d)\n", len(r.Incomplete))
		for _, gap := range r.Incomplete {
			fmt.Fprintf(&b, "  %s %s: missing %s [%s]\n",
				markIncomplete, gap.RuleID, contract.JoinArtifacts(gap.Missing), gap.Severity)
		}
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(&b, "\nMissing (%d)\n", len(r.Missing))
		for _, id := range r.Missing {
			fmt.Fprintf(&b, "  %s %s\n", markMissing, id)
		}
	}

	fmt.Fprintf(&b, "\nTotal: %d  complete: %d  incomplete: %d  missing: %d\n",
		r.Total, len(r.Complete), len(r.Incomplete), len(r.Missing))
	return b.String()
}

// FormatJSON renders the report verbatim as indented JSON.
func FormatJSON(r *Report) ([]byte, error) {
	return encodeIndented(r)
}

func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
