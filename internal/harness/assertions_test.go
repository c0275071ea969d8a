package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStates struct {
	state string
	known []string
}

func (f fakeStates) State() string         { return f.state }
func (f fakeStates) KnownStates() []string { return f.known }

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := &Result{Changes: []string{"CONNECTED", "HELLO", "OFFLINE", "HELLO"}}
	src := fakeStates{state: "HELLO", known: []string{"HELLO", "BYE"}}

	errs := EvaluateAssertions(result, src, []Assertion{
		{Type: AssertFinalState, State: "HELLO"},
		{Type: AssertChangeCount, Count: 4},
		{Type: AssertChangeOrder, States: []string{"CONNECTED", "OFFLINE"}},
		{Type: AssertKnownStates, States: []string{"HELLO", "BYE"}},
	})
	assert.Empty(t, errs)
}

func TestAssertChangeOrder_OutOfOrder(t *testing.T) {
	result := &Result{Changes: []string{"CONNECTED", "HELLO"}}

	err := assertChangeOrder(result, Assertion{Type: AssertChangeOrder, States: []string{"HELLO", "CONNECTED"}})
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "missing CONNECTED after matching [HELLO]", ae.Actual)
}

func TestAssertionError_Format(t *testing.T) {
	err := assertFinalState(&Result{Changes: []string{"CONNECTED"}}, fakeStates{state: "CONNECTED"},
		Assertion{Type: AssertFinalState, State: "HELLO"})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: final_state")
	assert.Contains(t, msg, "Expected: HELLO")
	assert.Contains(t, msg, "Actual: CONNECTED")
	assert.Contains(t, msg, "[1] CONNECTED")
}

func TestEvaluateAssertions_CollectsFailures(t *testing.T) {
	errs := EvaluateAssertions(&Result{}, fakeStates{state: "OFFLINE"}, []Assertion{
		{Type: AssertChangeCount, Count: 1},
		{Type: AssertKnownStates, States: []string{"X"}},
		{Type: "bogus"},
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}
