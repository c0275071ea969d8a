package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/journal"
	"github.com/Abhichasma/StateMQ/internal/testutil"
)

// Harness executes one scenario against a fresh engine.
type Harness struct {
	engine  *engine.Engine
	journal *journal.Journal
	runID   string
	result  *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine journaling into a fresh
// in-memory database. Expectation failures are reported in Result.Errors;
// the returned error is reserved for harness failures.
//
// Execution flow:
// 1. Open in-memory journal and attach a recorder
// 2. Declare rules, checking expected ids
// 3. Execute steps with expect validation
// 4. Evaluate assertions and read the trace back from the journal
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	runID := testutil.NewFixedRunID(scenario.RunID).Generate()

	rec, err := j.Recorder(ctx, runID, scenario.Name,
		journal.WithSequencer(testutil.NewDeterministicClock()),
		journal.WithRecorderLogger(quiet),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}

	h := &Harness{
		engine:  engine.New(engine.WithLogger(quiet), engine.WithObserver(rec)),
		journal: j,
		runID:   runID,
		result:  NewResult(),
	}
	h.engine.OnStateChange(func(state string) {
		h.result.Changes = append(h.result.Changes, state)
	})

	h.declareRules(scenario.Rules)
	for i, step := range scenario.Steps {
		h.executeStep(i, step)
	}
	h.result.FinalState = h.engine.State()

	for _, msg := range EvaluateAssertions(h.result, h.engine, scenario.Assertions) {
		h.result.AddError(msg)
	}

	trace, err := j.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	h.result.Trace = trace

	return h.result, nil
}

func (h *Harness) declareRules(rules []RuleDecl) {
	for i, r := range rules {
		id := h.engine.DeclareRule(r.Topic, r.Payload, r.State)
		if r.ID != nil && int(id) != *r.ID {
			h.result.AddError(fmt.Sprintf("rules[%d] %s: expected id %d, got %d", i, r.State, *r.ID, id))
		}
	}
}

func (h *Harness) executeStep(i int, step Step) {
	var matched bool
	switch {
	case step.Connect != nil:
		h.engine.SetConnected(*step.Connect)
	case step.Message != nil:
		matched = h.engine.ApplyMessage(step.Message.Topic, step.Message.Payload)
	}

	if step.Expect == nil {
		return
	}
	h.checkExpect(i, step.Expect, matched)
}

func (h *Harness) checkExpect(i int, expect *ExpectClause, matched bool) {
	snap := h.engine.Snapshot()

	if expect.State != "" && snap.State != expect.State {
		h.result.AddError(fmt.Sprintf("step %d: expected state %s, got %s", i, expect.State, snap.State))
	}
	if expect.ID != nil && int(snap.StateID) != *expect.ID {
		h.result.AddError(fmt.Sprintf("step %d: expected id %d, got %d", i, *expect.ID, snap.StateID))
	}
	if expect.Connected != nil && snap.Connected != *expect.Connected {
		h.result.AddError(fmt.Sprintf("step %d: expected connected=%t, got %t", i, *expect.Connected, snap.Connected))
	}
	if expect.Matched != nil && matched != *expect.Matched {
		h.result.AddError(fmt.Sprintf("step %d: expected matched=%t, got %t", i, *expect.Matched, matched))
	}
}
