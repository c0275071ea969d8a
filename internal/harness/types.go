package harness

import "github.com/Abhichasma/StateMQ/internal/journal"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Changes lists the state names passed to the listener, in call order.
	Changes []string `json:"changes"`

	// Trace is the run as journaled, ordered by seq.
	Trace []journal.Entry `json:"trace"`

	// FinalState is the state reported after the last step.
	FinalState string `json:"final_state"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Changes: []string{},
		Trace:   []journal.Entry{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
