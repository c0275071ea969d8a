package config

import (
	"fmt"
	"time"

	"github.com/Abhichasma/StateMQ/internal/ir"
	"github.com/Abhichasma/StateMQ/internal/transport/mqtt"
)

// ActionResolver maps a task action name to its callback.
type ActionResolver interface {
	Resolve(action string) (ir.TaskFunc, bool)
}

// Actions is a map-backed ActionResolver.
type Actions map[string]ir.TaskFunc

func (a Actions) Resolve(action string) (ir.TaskFunc, bool) {
	fn, ok := a[action]
	return fn, ok && fn != nil
}

// Declarer is the declaration surface of an engine. *engine.Engine
// satisfies it.
type Declarer interface {
	TryDeclareRule(topic, payload, state string) (ir.StateID, error)
	TryDeclareTask(name string, periodMS uint32, stack ir.Stack, fn ir.TaskFunc, enabled bool) (ir.TaskID, error)
}

// Applied holds the ids assigned by Apply, index-aligned with Config.Rules
// and Config.Tasks.
type Applied struct {
	Rules []ir.StateID
	Tasks []ir.TaskID
}

// Apply declares the rules, then the tasks, in document order. It stops at
// the first declaration the engine rejects. Run Validate first: a valid
// configuration always applies cleanly to a fresh engine.
func (c *Config) Apply(d Declarer, actions ActionResolver) (*Applied, error) {
	applied := &Applied{
		Rules: make([]ir.StateID, 0, len(c.Rules)),
		Tasks: make([]ir.TaskID, 0, len(c.Tasks)),
	}

	for i, r := range c.Rules {
		id, err := d.TryDeclareRule(r.Topic, r.Payload, r.State)
		if err != nil {
			return applied, fmt.Errorf("rules[%d]: %w", i, err)
		}
		applied.Rules = append(applied.Rules, id)
	}

	for i, t := range c.Tasks {
		stack, err := ir.ParseStack(t.Stack)
		if err != nil {
			return applied, fmt.Errorf("tasks[%d]: %w", i, err)
		}

		var fn ir.TaskFunc
		if actions != nil {
			fn, _ = actions.Resolve(t.Action)
		}
		if fn == nil {
			return applied, &LoadError{
				Code:    ErrCodeAction,
				Path:    fmt.Sprintf("tasks[%d].action", i),
				Message: fmt.Sprintf("unknown action %q", t.Action),
			}
		}

		id, err := d.TryDeclareTask(t.Name, t.PeriodMS, stack, fn, t.Enabled)
		if err != nil {
			return applied, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		applied.Tasks = append(applied.Tasks, id)
	}

	return applied, nil
}

// MQTT returns the binding configuration. ClientID defaults to the node name.
func (c *Config) MQTT() (mqtt.Config, error) {
	keepAlive, err := c.Broker.KeepAliveDuration()
	if err != nil {
		return mqtt.Config{}, &LoadError{Code: ErrCodeBroker, Path: "broker.keep_alive", Message: err.Error()}
	}

	clientID := c.Broker.ClientID
	if clientID == "" {
		clientID = c.Node
	}

	mc := mqtt.Config{
		BrokerURL:   c.Broker.URL,
		ClientID:    clientID,
		Username:    c.Broker.Username,
		Password:    c.Broker.Password,
		KeepAlive:   keepAlive.Round(time.Second),
		StateTopic:  c.StateTopic,
		StateQoS:    byte(c.Broker.StateQoS),
		RetainState: c.Broker.RetainState,
	}
	if w := c.Broker.LastWill; w != nil {
		mc.LastWill = &mqtt.Will{
			Topic:   w.Topic,
			Payload: w.Payload,
			QoS:     byte(w.QoS),
			Retain:  w.Retain,
		}
	}
	return mc, nil
}

// SubscribeQoS returns the subscribe QoS per rule topic, the highest among
// rules sharing a topic.
func (c *Config) SubscribeQoS() map[string]byte {
	out := make(map[string]byte)
	for _, r := range c.Rules {
		if q, ok := out[r.Topic]; !ok || byte(r.QoS) > q {
			out[r.Topic] = byte(r.QoS)
		}
	}
	return out
}

// RawSubscriptions converts Subscriptions for the binding.
func (c *Config) RawSubscriptions() []mqtt.Subscription {
	out := make([]mqtt.Subscription, 0, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		out = append(out, mqtt.Subscription{Topic: s.Topic, QoS: byte(s.QoS)})
	}
	return out
}
