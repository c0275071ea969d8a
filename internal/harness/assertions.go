package harness

import (
	"fmt"
	"slices"
	"strings"
)

// StateSource is the engine surface assertions read. *engine.Engine
// satisfies it.
type StateSource interface {
	State() string
	KnownStates() []string
}

// AssertionError is returned when an assertion fails.
// It includes the listener history to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Changes  []string // Listener history for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nState changes:\n")
	for i, state := range e.Changes {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, state)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. An empty result means all assertions held.
func EvaluateAssertions(result *Result, src StateSource, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, src, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, src StateSource, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(result, src, a)
	case AssertChangeCount:
		return assertChangeCount(result, a)
	case AssertChangeOrder:
		return assertChangeOrder(result, a)
	case AssertKnownStates:
		return assertKnownStates(result, src, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFinalState(result *Result, src StateSource, a Assertion) error {
	if got := src.State(); got != a.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: a.State,
			Actual:   got,
			Changes:  result.Changes,
		}
	}
	return nil
}

func assertChangeCount(result *Result, a Assertion) error {
	if got := len(result.Changes); got != a.Count {
		return &AssertionError{
			Type:     AssertChangeCount,
			Expected: fmt.Sprintf("%d state changes", a.Count),
			Actual:   fmt.Sprintf("%d state changes", got),
			Changes:  result.Changes,
		}
	}
	return nil
}

// assertChangeOrder checks that the states appear in the listener history in
// the given order. Intervening changes are allowed.
func assertChangeOrder(result *Result, a Assertion) error {
	next := 0
	for _, state := range result.Changes {
		if next < len(a.States) && state == a.States[next] {
			next++
		}
	}
	if next < len(a.States) {
		return &AssertionError{
			Type:     AssertChangeOrder,
			Expected: fmt.Sprintf("changes in order: %v", a.States),
			Actual:   fmt.Sprintf("missing %s after matching %v", a.States[next], a.States[:next]),
			Changes:  result.Changes,
		}
	}
	return nil
}

func assertKnownStates(result *Result, src StateSource, a Assertion) error {
	if got := src.KnownStates(); !slices.Equal(got, a.States) {
		return &AssertionError{
			Type:     AssertKnownStates,
			Expected: fmt.Sprintf("%v", a.States),
			Actual:   fmt.Sprintf("%v", got),
			Changes:  result.Changes,
		}
	}
	return nil
}
