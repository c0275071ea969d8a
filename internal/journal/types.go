package journal

import "github.com/Abhichasma/StateMQ/internal/ir"

// Kind classifies a journal entry.
type Kind string

const (
	KindTransition Kind = "transition"
	KindMessage    Kind = "message"
	KindCapacity   Kind = "capacity"
)

// Run describes one journaled engine lifetime.
type Run struct {
	ID             string `json:"id"`
	Node           string `json:"node"`
	EngineVersion  string `json:"engine_version"`
	JournalVersion string `json:"journal_version"`
}

// Entry is one journaled event. Fields not relevant to Kind are zero.
type Entry struct {
	RunID string `json:"run_id"`
	Seq   int64  `json:"seq"`
	Kind  Kind   `json:"kind"`

	// Transition
	FromID ir.StateID `json:"from_id,omitempty"`
	ToID   ir.StateID `json:"to_id,omitempty"`
	State  string     `json:"state,omitempty"`
	User   bool       `json:"user,omitempty"`

	// Message
	Topic   string `json:"topic,omitempty"`
	Payload string `json:"payload,omitempty"`
	Matched bool   `json:"matched,omitempty"`

	// Capacity; Topic carries the rejected name.
	Code string `json:"code,omitempty"`
}
