// Package metrics exports engine activity as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/ir"
)

const namespace = "statemq"

// Observer records engine events. It implements engine.Observer.
type Observer struct {
	transitions *prometheus.CounterVec
	messages    *prometheus.CounterVec
	capacity    *prometheus.CounterVec
	stateID     prometheus.Gauge
}

var _ engine.Observer = (*Observer)(nil)

// NewObserver registers the StateMQ collectors on reg and returns an
// observer feeding them. Registering twice on the same registry panics,
// as with promauto.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)

	o := &Observer{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of observed state changes by target state",
			},
			[]string{"state"},
		),
		messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Total number of applied messages by rule match",
			},
			[]string{"matched"},
		),
		capacity: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capacity_exhausted_total",
				Help:      "Total number of declarations that hit a full table",
			},
			[]string{"kind"},
		),
		stateID: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state_id",
				Help:      "Id of the current state (0=OFFLINE, 1=CONNECTED)",
			},
		),
	}
	o.stateID.Set(float64(ir.OfflineID))
	return o
}

func (o *Observer) OnTransition(from, to ir.StateID, state string, userOriginated bool) {
	o.transitions.WithLabelValues(state).Inc()
	o.stateID.Set(float64(to))
}

func (o *Observer) OnMessage(topic, payload string, matched bool) {
	// Topic and payload stay out of labels: both are unbounded.
	o.messages.WithLabelValues(strconv.FormatBool(matched)).Inc()
}

func (o *Observer) OnCapacityExhausted(code engine.CapacityErrorCode, name string) {
	o.capacity.WithLabelValues(kindOf(code)).Inc()
}

// kindOf maps a capacity code to its table label.
func kindOf(code engine.CapacityErrorCode) string {
	switch code {
	case engine.ErrCodeRuleTableFull:
		return "rules"
	case engine.ErrCodeStateRegistryFull:
		return "states"
	case engine.ErrCodeTaskTableFull:
		return "tasks"
	default:
		return "unknown"
	}
}
