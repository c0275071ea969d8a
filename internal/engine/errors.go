package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned by the Try* declarations for an empty
// required input or a nil callback.
var ErrInvalidArgument = errors.New("invalid argument")

// CapacityError reports a rejected declaration because a fixed-capacity
// table is full.
//
// The plain declaration methods swallow this error and return the fallback
// sentinel instead; it is only surfaced by the Try* variants.
type CapacityError struct {
	// Code identifies the exhausted table.
	Code CapacityErrorCode

	// Capacity is the table's fixed size.
	Capacity int

	// Name is the state, topic or task name that was rejected.
	Name string
}

// CapacityErrorCode categorizes capacity errors.
type CapacityErrorCode string

const (
	// ErrCodeRuleTableFull indicates the rule table holds ir.MaxRules entries.
	ErrCodeRuleTableFull CapacityErrorCode = "RULE_TABLE_FULL"

	// ErrCodeStateRegistryFull indicates the registry holds ir.MaxKnownStates user states.
	ErrCodeStateRegistryFull CapacityErrorCode = "STATE_REGISTRY_FULL"

	// ErrCodeTaskTableFull indicates the task table holds ir.MaxTasks entries.
	ErrCodeTaskTableFull CapacityErrorCode = "TASK_TABLE_FULL"
)

// Error implements the error interface.
func (e *CapacityError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: capacity %d reached (rejected %q)", e.Code, e.Capacity, e.Name)
	}
	return fmt.Sprintf("%s: capacity %d reached", e.Code, e.Capacity)
}

// IsCapacityError returns true if err is (or wraps) a CapacityError.
func IsCapacityError(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// IsRuleTableFull returns true if err reports an exhausted rule table.
func IsRuleTableFull(err error) bool {
	return hasCode(err, ErrCodeRuleTableFull)
}

// IsStateRegistryFull returns true if err reports an exhausted state registry.
func IsStateRegistryFull(err error) bool {
	return hasCode(err, ErrCodeStateRegistryFull)
}

// IsTaskTableFull returns true if err reports an exhausted task table.
func IsTaskTableFull(err error) bool {
	return hasCode(err, ErrCodeTaskTableFull)
}

func hasCode(err error, code CapacityErrorCode) bool {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
