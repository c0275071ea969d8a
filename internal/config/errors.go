package config

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error code constants. The CLI prints them verbatim.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // File unreadable or not parseable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation or schema failure
	ErrCodeFormat      = "E008" // Unsupported file extension

	// Device and broker errors
	ErrCodeNode      = "E201" // Missing node name
	ErrCodeBroker    = "E202" // Missing broker url or bad keep_alive
	ErrCodeLastWill  = "E203" // Last will without topic
	ErrCodeQoS       = "E204" // QoS outside 0..2
	ErrCodeRawTopic  = "E205" // Subscription without topic

	// Rule errors
	ErrCodeRule          = "E210" // Rule missing topic or state
	ErrCodeRuleCapacity  = "E211" // More rules than the engine holds
	ErrCodeStateCapacity = "E212" // More distinct states than the engine holds
	ErrCodeStateName     = "E213" // State name longer than the engine stores

	// Task errors
	ErrCodeTask         = "E220" // Task missing name or period
	ErrCodeStack        = "E221" // Unknown stack hint
	ErrCodeAction       = "E222" // Missing or unknown action
	ErrCodeTaskCapacity = "E223" // More tasks than the engine holds
)

// LoadError is a coded configuration problem.
type LoadError struct {
	Code    string
	Message string
	Path    string    // field path, e.g. rules[2].state
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// fromCUE converts the first CUE error to a LoadError with its position.
func fromCUE(code string, err error) *LoadError {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
