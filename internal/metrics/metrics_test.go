package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/ir"
)

func TestObserver_CountsEngineActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewObserver(reg)
	assert.Equal(t, float64(ir.OfflineID), testutil.ToFloat64(obs.stateID))

	e := engine.New(engine.WithObserver(obs))
	hello := e.DeclareRule("t", "hi", "HELLO")
	e.DeclareRule("t", "bye", "BYE")

	e.SetConnected(true)
	e.ApplyMessage("t", "hi")
	e.ApplyMessage("t", "hi") // no change
	e.ApplyMessage("t", "unknown")

	assert.Equal(t, 1.0, testutil.ToFloat64(obs.transitions.WithLabelValues(ir.ConnectedState)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.transitions.WithLabelValues("HELLO")))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.messages.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.messages.WithLabelValues("false")))
	assert.Equal(t, float64(hello), testutil.ToFloat64(obs.stateID))

	e.SetConnected(false)
	assert.Equal(t, float64(ir.OfflineID), testutil.ToFloat64(obs.stateID))
}

func TestObserver_CountsCapacity(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewObserver(reg)
	e := engine.New(engine.WithObserver(obs))

	noop := func() {}
	for i := 0; i < ir.MaxTasks+2; i++ {
		e.DeclareTask(fmt.Sprintf("task-%d", i), 100, ir.StackSmall, noop, true)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.capacity.WithLabelValues("tasks")))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.capacity.WithLabelValues("rules")))
}

func TestObserver_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewObserver(reg)
	obs.OnMessage("t", "p", true)
	obs.OnTransition(ir.OfflineID, ir.ConnectedID, ir.ConnectedState, false)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "statemq_messages_total")
	assert.Contains(t, names, "statemq_transitions_total")
	assert.Contains(t, names, "statemq_state_id")

	assert.Panics(t, func() { NewObserver(reg) }, "duplicate registration")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "rules", kindOf(engine.ErrCodeRuleTableFull))
	assert.Equal(t, "states", kindOf(engine.ErrCodeStateRegistryFull))
	assert.Equal(t, "tasks", kindOf(engine.ErrCodeTaskTableFull))
	assert.Equal(t, "unknown", kindOf("OTHER"))
}
