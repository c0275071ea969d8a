package mqtt

import (
	"errors"
	"fmt"
	"time"
)

// Subscription is a topic filter with its subscribe QoS.
type Subscription struct {
	Topic string
	QoS   byte
}

// Will is the message the broker publishes when the client vanishes.
type Will struct {
	Topic   string
	Payload string
	QoS     byte
	Retain  bool
}

// Config holds broker connection settings.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration

	// StateTopic receives each new state name. Empty disables publication.
	StateTopic  string
	StateQoS    byte
	RetainState bool

	LastWill *Will
}

func (c Config) validate() error {
	var errs []error
	if c.BrokerURL == "" {
		errs = append(errs, errors.New("broker url is required"))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}
	if c.StateQoS > 2 {
		errs = append(errs, fmt.Errorf("state qos %d out of range 0..2", c.StateQoS))
	}
	if w := c.LastWill; w != nil {
		if w.Topic == "" {
			errs = append(errs, errors.New("last will needs a topic"))
		}
		if w.QoS > 2 {
			errs = append(errs, fmt.Errorf("last will qos %d out of range 0..2", w.QoS))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("mqtt config: %w", errors.Join(errs...))
	}
	return nil
}
