package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Abhichasma/StateMQ/internal/journal"
)

// TraceSnapshot captures what a scenario run observably did.
type TraceSnapshot struct {
	ScenarioName string          `json:"scenario_name"`
	Changes      []string        `json:"changes"`
	FinalState   string          `json:"final_state"`
	Trace        []journal.Entry `json:"trace"`
}

// MarshalSnapshot renders a result as indented JSON with a trailing newline.
// Struct field order keeps the output deterministic.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	data, err := json.MarshalIndent(TraceSnapshot{
		ScenarioName: scenarioName,
		Changes:      result.Changes,
		FinalState:   result.FinalState,
		Trace:        result.Trace,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden runs scenario and checks its snapshot against
// testdata/golden/<name>.golden. goldie's -update flag rewrites the file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
