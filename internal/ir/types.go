package ir

import (
	"fmt"
	"strings"
	"time"
)

// StateID identifies a device state.
//
// Layout:
//
//	0   = OfflineID
//	1   = ConnectedID
//	2.. = user-declared states in declaration order
type StateID uint8

// Reserved state identifiers. Both always resolve, independent of registry contents.
const (
	OfflineID   StateID = 0
	ConnectedID StateID = 1

	// FirstUserID is the id assigned to the first declared user state.
	FirstUserID StateID = 2
)

// Reserved state names.
const (
	OfflineState   = "OFFLINE"
	ConnectedState = "CONNECTED"
)

// Table capacities. These are deliberate memory bounds, not tunables.
const (
	// MaxKnownStates is the maximum number of user states (excluding OFFLINE / CONNECTED).
	MaxKnownStates = 32

	// MaxRules is the maximum number of (topic, payload) -> state rules.
	MaxRules = 32

	// MaxTasks is the maximum number of periodic task declarations.
	MaxTasks = 8

	// StateNameLen is the state name buffer length on the device, terminator included.
	StateNameLen = 16

	// MaxStateNameLen is the longest stored state name in bytes.
	MaxStateNameLen = StateNameLen - 1
)

// IsReserved reports whether id is OFFLINE or CONNECTED.
func IsReserved(id StateID) bool {
	return id == OfflineID || id == ConnectedID
}

// IsReservedName reports whether a normalized name is OFFLINE or CONNECTED.
func IsReservedName(name string) bool {
	return name == OfflineState || name == ConnectedState
}

// IsUserState reports whether id falls in the user state range.
// It does not check that the id was actually assigned.
func IsUserState(id StateID) bool {
	return id >= FirstUserID
}

// Rule maps an inbound (topic, payload) pair to a target state.
type Rule struct {
	Topic   string  `json:"topic"`
	Payload string  `json:"payload"`
	StateID StateID `json:"state_id"`
}

// TaskID identifies a declared task. It is the task's index in the task table.
type TaskID int

// NoTask is returned when a task declaration is rejected.
const NoTask TaskID = -1

// TaskFunc is a periodic task callback.
type TaskFunc func()

// Stack is a resource hint for scheduled callbacks.
// It does not imply a dedicated goroutine or OS thread.
type Stack int

const (
	StackSmall Stack = iota
	StackMedium
	StackLarge
)

var stackNames = [...]string{"small", "medium", "large"}

// String returns the lowercase hint name.
func (s Stack) String() string {
	if s < 0 || int(s) >= len(stackNames) {
		return fmt.Sprintf("stack(%d)", int(s))
	}
	return stackNames[s]
}

// ParseStack parses a hint name case-insensitively. An empty name means StackSmall.
func ParseStack(name string) (Stack, error) {
	if name == "" {
		return StackSmall, nil
	}
	for i, n := range stackNames {
		if strings.EqualFold(n, name) {
			return Stack(i), nil
		}
	}
	return StackSmall, fmt.Errorf("unknown stack hint %q (want small, medium or large)", name)
}

// TaskDef is a periodic-work declaration. Enabled is the only field that
// changes after registration.
type TaskDef struct {
	ID       TaskID
	Name     string
	Period   time.Duration
	Stack    Stack
	Callback TaskFunc
	Enabled  bool
}

// PeriodMS returns the declared period in milliseconds.
func (t TaskDef) PeriodMS() uint32 {
	return uint32(t.Period / time.Millisecond)
}
