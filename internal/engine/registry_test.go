package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

func TestStateRegistry_SequentialIDs(t *testing.T) {
	r := newStateRegistry()

	for i := 0; i < ir.MaxKnownStates; i++ {
		id, err := r.declare(fmt.Sprintf("S%d", i))
		require.NoError(t, err)
		assert.Equal(t, ir.FirstUserID+ir.StateID(i), id)
	}
	assert.Equal(t, ir.MaxKnownStates, r.count())
}

func TestStateRegistry_Idempotent(t *testing.T) {
	r := newStateRegistry()

	first, err := r.declare("HELLO")
	require.NoError(t, err)
	second, err := r.declare("HELLO")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, r.count())
}

func TestStateRegistry_ReservedNames(t *testing.T) {
	r := newStateRegistry()

	id, err := r.declare(ir.OfflineState)
	require.NoError(t, err)
	assert.Equal(t, ir.OfflineID, id)

	id, err = r.declare(ir.ConnectedState)
	require.NoError(t, err)
	assert.Equal(t, ir.ConnectedID, id)

	assert.Equal(t, 0, r.count(), "reserved names are never registered")
}

func TestStateRegistry_FullFallsBackToConnected(t *testing.T) {
	r := newStateRegistry()
	for i := 0; i < ir.MaxKnownStates; i++ {
		_, err := r.declare(fmt.Sprintf("S%d", i))
		require.NoError(t, err)
	}

	id, err := r.declare("ONE_TOO_MANY")
	assert.Equal(t, ir.ConnectedID, id)
	assert.True(t, IsStateRegistryFull(err))
	assert.Equal(t, ir.MaxKnownStates, r.count())

	// Known names still resolve once full.
	id, err = r.declare("S3")
	require.NoError(t, err)
	assert.Equal(t, ir.FirstUserID+3, id)
}

func TestStateRegistry_TotalLookups(t *testing.T) {
	r := newStateRegistry()
	_, err := r.declare("HELLO")
	require.NoError(t, err)

	assert.Equal(t, ir.FirstUserID, r.idOf("HELLO"))
	assert.Equal(t, ir.OfflineID, r.idOf(ir.OfflineState))
	assert.Equal(t, ir.ConnectedID, r.idOf("NOPE"))
	assert.Equal(t, 1, r.count(), "idOf never registers")

	assert.Equal(t, ir.OfflineState, r.nameOf(ir.OfflineID))
	assert.Equal(t, ir.ConnectedState, r.nameOf(ir.ConnectedID))
	assert.Equal(t, "HELLO", r.nameOf(ir.FirstUserID))
	assert.Equal(t, ir.ConnectedState, r.nameOf(ir.FirstUserID+1))
	assert.Equal(t, ir.ConnectedState, r.nameOf(ir.StateID(255)))
}

func TestStateRegistry_LongNamesStayIdempotent(t *testing.T) {
	r := newStateRegistry()
	long := strings.Repeat("LONGSTATE", 4)

	first, err := r.declare(long)
	require.NoError(t, err)
	second, err := r.declare(long)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, r.nameOf(first), ir.MaxStateNameLen)
}

func TestStateRegistry_SnapshotIsCopy(t *testing.T) {
	r := newStateRegistry()
	_, _ = r.declare("A")

	snap := r.snapshot()
	snap[0] = "MUTATED"

	assert.Equal(t, "A", r.nameOf(ir.FirstUserID))
}
