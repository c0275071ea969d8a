package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapacityError_Error(t *testing.T) {
	err := &CapacityError{Code: ErrCodeRuleTableFull, Capacity: 32, Name: "lab/node/state"}
	assert.Equal(t, `RULE_TABLE_FULL: capacity 32 reached (rejected "lab/node/state")`, err.Error())

	err = &CapacityError{Code: ErrCodeTaskTableFull, Capacity: 8}
	assert.Equal(t, "TASK_TABLE_FULL: capacity 8 reached", err.Error())
}

func TestCapacityError_Helpers(t *testing.T) {
	wrapped := fmt.Errorf("declare: %w", &CapacityError{Code: ErrCodeStateRegistryFull, Capacity: 32})

	assert.True(t, IsCapacityError(wrapped))
	assert.True(t, IsStateRegistryFull(wrapped))
	assert.False(t, IsRuleTableFull(wrapped))
	assert.False(t, IsTaskTableFull(wrapped))

	assert.False(t, IsCapacityError(errors.New("other")))
	assert.False(t, IsCapacityError(nil))
	assert.False(t, IsRuleTableFull(ErrInvalidArgument))
}
