package engine

import (
	"log/slog"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// Observer receives engine events for logging, metrics and journaling.
//
// Callbacks run after the engine lock is released, on the caller's
// goroutine. Implementations should be fast and must be safe for concurrent
// use: racing writers may deliver events concurrently.
type Observer interface {
	// OnTransition is called once per observed state change.
	OnTransition(from, to ir.StateID, state string, userOriginated bool)

	// OnMessage is called for every ApplyMessage call.
	OnMessage(topic, payload string, matched bool)

	// OnCapacityExhausted is called when a declaration is rejected or
	// falls back because a table is full.
	OnCapacityExhausted(code CapacityErrorCode, name string)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnTransition(from, to ir.StateID, state string, userOriginated bool) {}
func (NoopObserver) OnMessage(topic, payload string, matched bool)                       {}
func (NoopObserver) OnCapacityExhausted(code CapacityErrorCode, name string)             {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnTransition(from, to ir.StateID, state string, userOriginated bool) {
	for _, o := range c.observers {
		o.OnTransition(from, to, state, userOriginated)
	}
}

func (c *CompositeObserver) OnMessage(topic, payload string, matched bool) {
	for _, o := range c.observers {
		o.OnMessage(topic, payload, matched)
	}
}

func (c *CompositeObserver) OnCapacityExhausted(code CapacityErrorCode, name string) {
	for _, o := range c.observers {
		o.OnCapacityExhausted(code, name)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs engine events using the
// provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnTransition(from, to ir.StateID, state string, userOriginated bool) {
	o.Logger.Info("state changed",
		slog.Int("from", int(from)),
		slog.Int("to", int(to)),
		slog.String("state", state),
		slog.Bool("user", userOriginated),
	)
}

func (o *LoggingObserver) OnMessage(topic, payload string, matched bool) {
	o.Logger.Debug("message applied",
		slog.String("topic", topic),
		slog.String("payload", payload),
		slog.Bool("matched", matched),
	)
}

func (o *LoggingObserver) OnCapacityExhausted(code CapacityErrorCode, name string) {
	o.Logger.Warn("capacity exhausted",
		slog.String("code", string(code)),
		slog.String("name", name),
	)
}
