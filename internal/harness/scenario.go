package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules are declared, in order, before the first step.
	Rules []RuleDecl `yaml:"rules"`

	// Steps drive the engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the run once all steps have executed.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed journal run id. If empty, defaults to
	// "test-run-default" for deterministic golden file comparison.
	RunID string `yaml:"run_id,omitempty"`
}

// RuleDecl declares one rule. ID, when set, is the state id the declaration
// must return.
type RuleDecl struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
	State   string `yaml:"state"`
	ID      *int   `yaml:"id,omitempty"`
}

// Step is exactly one of a connectivity change or a message.
type Step struct {
	// Connect sets the connectivity flag.
	Connect *bool `yaml:"connect,omitempty"`

	// Message is applied to the engine.
	Message *MessageStep `yaml:"message,omitempty"`

	// Expect is checked after the step. If nil, nothing is checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// MessageStep is an inbound (topic, payload) pair.
type MessageStep struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
}

// ExpectClause lists the values to check after a step. Unset fields are not
// checked.
type ExpectClause struct {
	State     string `yaml:"state,omitempty"`
	ID        *int   `yaml:"id,omitempty"`
	Connected *bool  `yaml:"connected,omitempty"`

	// Matched is the ApplyMessage result. Only valid on message steps.
	Matched *bool `yaml:"matched,omitempty"`
}

// Assertion validates the completed run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// State is the expected final state (final_state).
	State string `yaml:"state,omitempty"`

	// Count is the expected number of listener calls (change_count).
	Count int `yaml:"count,omitempty"`

	// States is the expected order (change_order) or registry (known_states).
	States []string `yaml:"states,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState  = "final_state"
	AssertChangeCount = "change_count"
	AssertChangeOrder = "change_order"
	AssertKnownStates = "known_states"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, r := range s.Rules {
		if r.Topic == "" || r.State == "" {
			return fmt.Errorf("rules[%d]: topic and state are required", i)
		}
	}

	for i, step := range s.Steps {
		switch {
		case step.Connect == nil && step.Message == nil:
			return fmt.Errorf("steps[%d]: one of connect or message is required", i)
		case step.Connect != nil && step.Message != nil:
			return fmt.Errorf("steps[%d]: connect and message are mutually exclusive", i)
		}
		if step.Message != nil && step.Message.Topic == "" {
			return fmt.Errorf("steps[%d]: message topic is required", i)
		}
		if step.Expect != nil && step.Expect.Matched != nil && step.Message == nil {
			return fmt.Errorf("steps[%d]: expect.matched is only valid on message steps", i)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertFinalState:
			if a.State == "" {
				return fmt.Errorf("assertions[%d]: final_state requires state", i)
			}
		case AssertChangeCount:
		case AssertChangeOrder, AssertKnownStates:
			if a.States == nil {
				return fmt.Errorf("assertions[%d]: %s requires states", i, a.Type)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}

	return nil
}
