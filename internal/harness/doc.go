// Package harness provides conformance testing for StateMQ rule sets.
//
// A scenario declares rules, drives an engine through connectivity changes
// and messages, and checks the states the engine reports along the way.
//
// # Scenario Format
//
//	name: hello_bye_replay
//	description: "Last user state is restored on reconnect"
//	rules:
//	  - {topic: t, payload: hi, state: HELLO, id: 2}
//	  - {topic: t, payload: bye, state: BYE, id: 3}
//	steps:
//	  - connect: true
//	    expect: {state: CONNECTED, id: 1}
//	  - message: {topic: t, payload: hi}
//	    expect: {state: HELLO, id: 2, matched: true}
//	assertions:
//	  - {type: final_state, state: HELLO}
//	  - {type: change_count, count: 2}
//
// # Assertion Types
//
//   - final_state: the state reported after the last step
//   - change_count: number of state-change listener calls
//   - change_order: listener calls contain the given states in order
//   - known_states: the declared user states, in id order
//
// # Deterministic Testing
//
// Every run journals into a fresh in-memory SQLite journal with a fixed run
// id (scenario run_id, default "test-run-default") and a deterministic clock,
// so the trace read back from the journal is identical across runs and can
// be compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/hello_bye_replay.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
