package harness

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/shadowgov/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Trace    []ir.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] r%d %s", ev.Seq, ev.Round, EventName(ev))
			if ev.Player != "" {
				fmt.Fprintf(&buf, " %s", ev.Player)
			}
			if ev.ActionDetails != nil {
				details, _ := ir.Marshal(ev.ActionDetails)
				fmt.Fprintf(&buf, " %s", details)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// EventName is the name assertions match events by: the game event for
// system events, the action for action events, else the event type.
func EventName(ev ir.Event) string {
	switch {
	case ev.GameEvent != "":
		return ev.GameEvent
	case ev.Action != "":
		return ev.Action
	}
	return string(ev.Type)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertEventContains:
		return assertEventContains(result.Events, a)
	case AssertEventCount:
		return assertEventCount(result.Events, a)
	case AssertEventOrder:
		return assertEventOrder(result.Events, a)
	case AssertFinalState:
		return assertFinalState(result.State, a)
	case AssertWinner:
		return assertWinner(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertEventContains checks that some event has the name, player and
// details (subset match) given.
func assertEventContains(trace []ir.Event, a Assertion) error {
	for _, ev := range trace {
		if EventName(ev) != a.Event {
			continue
		}
		if a.Player != "" && ev.Player != a.Player {
			continue
		}
		if matchDetails(ev.ActionDetails, a.Details) {
			return nil
		}
	}

	want := a.Event
	if a.Player != "" {
		want += " by " + a.Player
	}
	if len(a.Details) > 0 {
		want += fmt.Sprintf(" with details %v", a.Details)
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEventCount checks that the event appears exactly Count times.
func assertEventCount(trace []ir.Event, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if EventName(ev) == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventOrder checks that the events first appear in the given order.
// Events don't need to be consecutive.
func assertEventOrder(trace []ir.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		name := EventName(ev)
		if _, seen := positions[name]; !seen {
			positions[name] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range a.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertFinalState checks the expected fields against the final state
// snapshot (subset semantics).
func assertFinalState(state map[string]any, a Assertion) error {
	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actual, exists := state[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("known fields: %v", stateKeys(state)),
			}
		}
		if !valuesEqual(a.Expect[key], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, a.Expect[key]),
				Actual:   fmt.Sprintf("field %q = %v", key, actual),
			}
		}
	}
	return nil
}

func assertWinner(result *Result, a Assertion) error {
	if result.Winner == a.Winner && (a.Condition == "" || result.Condition == a.Condition) {
		return nil
	}
	want := a.Winner
	if a.Condition != "" {
		want += " by " + a.Condition
	}
	got := "no winner"
	if result.Winner != "" {
		got = result.Winner + " by " + result.Condition
	}
	return &AssertionError{
		Type:     AssertWinner,
		Expected: want,
		Actual:   got,
		Trace:    result.Events,
	}
}

// matchDetails reports whether every expected key is present in actual with
// an equal value.
func matchDetails(actual ir.Object, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || !valuesEqual(want, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares a YAML-decoded expectation with an actual value by
// their canonical encodings, so 3, int64(3) and ir.Int(3) are all equal.
func valuesEqual(expected, actual any) bool {
	want, err := canonical(expected)
	if err != nil {
		return false
	}
	got, err := canonical(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(want, got)
}

func canonical(v any) ([]byte, error) {
	val, err := ir.FromAny(v)
	if err != nil {
		return nil, err
	}
	return ir.Marshal(val)
}

func stateKeys(state map[string]any) []string {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
