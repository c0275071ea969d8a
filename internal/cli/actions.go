package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/Abhichasma/StateMQ/internal/config"
	"github.com/Abhichasma/StateMQ/internal/transport/mqtt"
)

// Built-in task actions a configuration may name.
const (
	ActionPublishState = "publish_state" // republish the current state to state_topic
	ActionPrintChat    = "print_chat"    // print unread messages from raw subscriptions
	ActionLogState     = "log_state"     // log the current state
)

// stateReader is the part of the engine the actions read.
type stateReader interface {
	State() string
}

// messenger is the part of the MQTT binding the actions use.
type messenger interface {
	Publish(topic, payload string, qos byte, retain bool) error
	Message(topic string) (string, bool)
}

// actionEnv binds the built-in actions to a running device. A nil bus makes
// the broker actions no-ops, which is all validate needs.
type actionEnv struct {
	cfg    *config.Config
	state  stateReader
	bus    messenger
	logger *slog.Logger

	mu  sync.Mutex // serializes writes to out
	out io.Writer
}

// BuiltinActions lists the action names accepted in configurations.
func BuiltinActions() []string {
	names := make([]string, 0, 3)
	for name := range (&actionEnv{}).actions() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (env *actionEnv) actions() config.Actions {
	return config.Actions{
		ActionPublishState: env.publishState,
		ActionPrintChat:    env.printChat,
		ActionLogState:     env.logState,
	}
}

func (env *actionEnv) publishState() {
	if env.bus == nil || env.cfg.StateTopic == "" {
		return
	}
	err := env.bus.Publish(env.cfg.StateTopic, env.state.State(), byte(env.cfg.Broker.StateQoS), env.cfg.Broker.RetainState)
	switch {
	case errors.Is(err, mqtt.ErrNotConnected):
		env.logger.Debug("state not published, broker disconnected")
	case err != nil:
		env.logger.Warn("state publish failed", "topic", env.cfg.StateTopic, "error", err)
	}
}

func (env *actionEnv) printChat() {
	if env.bus == nil {
		return
	}
	for _, sub := range env.cfg.Subscriptions {
		msg, ok := env.bus.Message(sub.Topic)
		if !ok {
			continue
		}
		env.mu.Lock()
		fmt.Fprintf(env.out, "%s: %s\n", sub.Topic, msg)
		env.mu.Unlock()
	}
}

func (env *actionEnv) logState() {
	if env.state == nil {
		return
	}
	env.logger.Info("current state", "state", env.state.State())
}
