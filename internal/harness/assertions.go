package harness

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		switch event.Type {
		case TraceTypeDiagnostic:
			fmt.Fprintf(&buf, "  [%d] step %d %s %s: %s\n", i+1, event.Step, event.Type, event.Kind, event.Message)
		default:
			fmt.Fprintf(&buf, "  [%d] step %d %s %s %v\n", i+1, event.Step, event.Type, event.Tag, event.Payload)
		}
	}

	return buf.String()
}

// assertFactContains checks for a fact with the tag whose payload contains
// the expected fields.
func assertFactContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := normalize(assertion.Payload)
	if err != nil {
		return fmt.Errorf("fact_contains: %w", err)
	}
	for _, event := range trace {
		if event.Type == TraceTypeFact && event.Tag == assertion.Tag && matchSubset(event.Payload, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertFactContains,
		Expected: fmt.Sprintf("fact %s with payload %v", assertion.Tag, assertion.Payload),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertFactCount checks that exactly Count facts carry the tag.
func assertFactCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == TraceTypeFact && event.Tag == assertion.Tag {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertFactCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Tag),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFactOrder checks that the first occurrences of the tags appear in
// the given order. Other facts may appear in between.
func assertFactOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != TraceTypeFact {
			continue
		}
		if _, seen := positions[event.Tag]; !seen {
			positions[event.Tag] = i + 1
		}
	}

	for _, tag := range assertion.Tags {
		if positions[tag] == 0 {
			return &AssertionError{
				Type:     AssertFactOrder,
				Expected: fmt.Sprintf("all facts present: %v", assertion.Tags),
				Actual:   fmt.Sprintf("missing fact: %s", tag),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Tags); i++ {
		prev, curr := assertion.Tags[i-1], assertion.Tags[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertFactOrder,
				Expected: fmt.Sprintf("facts in order: %v", assertion.Tags),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertDiagnosticContains checks for a diagnostic of the kind whose
// message contains the expected text. Empty fields match anything.
func assertDiagnosticContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type != TraceTypeDiagnostic {
			continue
		}
		if assertion.Kind != "" && event.Kind != assertion.Kind {
			continue
		}
		if strings.Contains(event.Message, assertion.Message) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertDiagnosticContains,
		Expected: fmt.Sprintf("diagnostic %q containing %q", assertion.Kind, assertion.Message),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertNoDiagnostics(trace []TraceEvent) error {
	var msgs []string
	for _, event := range trace {
		if event.Type == TraceTypeDiagnostic {
			msgs = append(msgs, event.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoDiagnostics,
		Expected: "no diagnostics",
		Actual:   fmt.Sprintf("%d diagnostic(s): %s", len(msgs), strings.Join(msgs, "; ")),
		Trace:    trace,
	}
}

// assertFinalContext checks that the final context contains the expected
// fields.
func assertFinalContext(result *Result, assertion Assertion) error {
	expected, err := normalize(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_context: %w", err)
	}
	if matchSubset(result.Context, expected) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalContext,
		Expected: fmt.Sprintf("context containing %v", expected),
		Actual:   fmt.Sprintf("%v", result.Context),
		Trace:    result.Trace,
	}
}

// matchSubset reports whether actual contains expected. Objects match when
// every expected key matches recursively; extra keys in actual are
// ignored. Everything else must be equal. Both sides must be normalized.
func matchSubset(actual, expected any) bool {
	if expected == nil {
		return true
	}
	expMap, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	actMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for key, want := range expMap {
		got, exists := actMap[key]
		if !exists {
			return false
		}
		if want == nil {
			if got != nil {
				return false
			}
			continue
		}
		if !matchSubset(got, want) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFactContains:
			err = assertFactContains(result.Trace, assertion)
		case AssertFactCount:
			err = assertFactCount(result.Trace, assertion)
		case AssertFactOrder:
			err = assertFactOrder(result.Trace, assertion)
		case AssertDiagnosticContains:
			err = assertDiagnosticContains(result.Trace, assertion)
		case AssertNoDiagnostics:
			err = assertNoDiagnostics(result.Trace)
		case AssertFinalContext:
			err = assertFinalContext(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
