package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// Validate reports every problem found, in document order. An empty result
// means Apply will declare the whole configuration without hitting a
// capacity limit.
//
// actions may be nil, in which case task actions are only checked for
// presence.
func (c *Config) Validate(actions ActionResolver) []error {
	var errs []error
	add := func(code, path, format string, args ...any) {
		errs = append(errs, &LoadError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if c.Node == "" {
		add(ErrCodeNode, "node", "node name is required")
	}

	if c.Broker.URL == "" {
		add(ErrCodeBroker, "broker.url", "broker url is required")
	}
	if _, err := c.Broker.KeepAliveDuration(); err != nil {
		add(ErrCodeBroker, "broker.keep_alive", "invalid duration %q", c.Broker.KeepAlive)
	}
	if !validQoS(c.Broker.StateQoS) {
		add(ErrCodeQoS, "broker.state_qos", "qos %d out of range 0..2", c.Broker.StateQoS)
	}
	if w := c.Broker.LastWill; w != nil {
		if w.Topic == "" {
			add(ErrCodeLastWill, "broker.last_will.topic", "last will needs a topic")
		}
		if !validQoS(w.QoS) {
			add(ErrCodeQoS, "broker.last_will.qos", "qos %d out of range 0..2", w.QoS)
		}
	}

	for i, s := range c.Subscriptions {
		path := fmt.Sprintf("subscriptions[%d]", i)
		if s.Topic == "" {
			add(ErrCodeRawTopic, path+".topic", "topic is required")
		}
		if !validQoS(s.QoS) {
			add(ErrCodeQoS, path+".qos", "qos %d out of range 0..2", s.QoS)
		}
	}

	if len(c.Rules) > ir.MaxRules {
		add(ErrCodeRuleCapacity, "rules", "%d rules declared, engine holds %d", len(c.Rules), ir.MaxRules)
	}
	states := make(map[string]struct{})
	for i, r := range c.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if r.Topic == "" {
			add(ErrCodeRule, path+".topic", "topic is required")
		}
		if r.State == "" {
			add(ErrCodeRule, path+".state", "state is required")
		}
		if len(r.State) > ir.MaxStateNameLen {
			add(ErrCodeStateName, path+".state", "state %q is longer than %d bytes", r.State, ir.MaxStateNameLen)
		}
		if !utf8.ValidString(r.State) {
			add(ErrCodeStateName, path+".state", "state name is not valid UTF-8")
		}
		if !validQoS(r.QoS) {
			add(ErrCodeQoS, path+".qos", "qos %d out of range 0..2", r.QoS)
		}
		if r.State != "" {
			if name := ir.NormalizeStateName(r.State); !ir.IsReservedName(name) {
				states[name] = struct{}{}
			}
		}
	}
	if len(states) > ir.MaxKnownStates {
		add(ErrCodeStateCapacity, "rules", "%d distinct states declared, engine holds %d", len(states), ir.MaxKnownStates)
	}

	if len(c.Tasks) > ir.MaxTasks {
		add(ErrCodeTaskCapacity, "tasks", "%d tasks declared, engine holds %d", len(c.Tasks), ir.MaxTasks)
	}
	for i, t := range c.Tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		if t.Name == "" {
			add(ErrCodeTask, path+".name", "name is required")
		}
		if t.PeriodMS == 0 {
			add(ErrCodeTask, path+".period_ms", "period must be positive")
		}
		if _, err := ir.ParseStack(t.Stack); err != nil {
			add(ErrCodeStack, path+".stack", "%v", err)
		}
		switch {
		case t.Action == "":
			add(ErrCodeAction, path+".action", "action is required")
		case actions != nil:
			if _, ok := actions.Resolve(t.Action); !ok {
				add(ErrCodeAction, path+".action", "unknown action %q", t.Action)
			}
		}
	}

	return errs
}

func validQoS(q int) bool {
	return q >= 0 && q <= 2
}
