package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/ir"
)

// Target is the engine surface the binding drives. *engine.Engine satisfies it.
type Target interface {
	ApplyMessage(topic, payload string) bool
	SetConnected(connected bool)
	Topics() []string
	State() string
	OnStateChange(fn engine.StateChangeFunc)
}

// Client is the subset of MQTT.Client the binding uses.
type Client interface {
	Connect() MQTT.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Subscribe(topic string, qos byte, callback MQTT.MessageHandler) MQTT.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
}

// ClientFactory builds a client from fully populated options.
type ClientFactory func(opts *MQTT.ClientOptions) Client

func defaultClientFactory(opts *MQTT.ClientOptions) Client {
	return MQTT.NewClient(opts)
}

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.New("mqtt: not connected")

// Binding connects a Target to a broker.
type Binding struct {
	target Target
	cfg    Config
	client Client
	logger *slog.Logger

	mu       sync.Mutex
	subQoS   map[string]byte // rule topic -> subscribe QoS
	raw      []Subscription
	cache    map[string]string
	listener engine.StateChangeFunc
	started  bool
}

// Option configures a Binding.
type Option func(*bindingOptions)

type bindingOptions struct {
	logger  *slog.Logger
	factory ClientFactory
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *bindingOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClientFactory replaces MQTT.NewClient. Tests inject a fake client.
func WithClientFactory(f ClientFactory) Option {
	return func(o *bindingOptions) {
		if f != nil {
			o.factory = f
		}
	}
}

// New creates a binding for target. The client is built immediately but does
// not connect until Start.
func New(target Target, cfg Config, opts ...Option) (*Binding, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := bindingOptions{
		logger:  slog.Default(),
		factory: defaultClientFactory,
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Binding{
		target: target,
		cfg:    cfg,
		logger: o.logger,
		subQoS: make(map[string]byte),
		cache:  make(map[string]string),
	}
	b.client = o.factory(b.clientOptions())
	return b, nil
}

func (b *Binding) clientOptions() *MQTT.ClientOptions {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(b.cfg.BrokerURL)
	opts.SetClientID(b.cfg.ClientID)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
	}
	if b.cfg.Password != "" {
		opts.SetPassword(b.cfg.Password)
	}
	if b.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(b.cfg.KeepAlive)
	}
	if w := b.cfg.LastWill; w != nil {
		opts.SetWill(w.Topic, w.Payload, w.QoS, w.Retain)
	}

	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(b.onConnectionLost)
	return opts
}

// SetSubscribeQoS sets the QoS used when subscribing to a rule topic.
// Rule topics default to QoS 0. Takes effect on the next (re)connect.
func (b *Binding) SetSubscribeQoS(topic string, qos byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subQoS[topic] = qos
}

// Subscribe adds a raw subscription outside the rule table. Messages on it
// are cached for Message. Takes effect on the next (re)connect.
func (b *Binding) Subscribe(topic string, qos byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raw = append(b.raw, Subscription{Topic: topic, QoS: qos})
}

// OnStateChange installs a listener run after each state publication. It
// replaces the engine listener slot, which the binding owns once started.
func (b *Binding) OnStateChange(fn engine.StateChangeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = fn
}

// Message returns and clears the last payload received on a raw topic.
func (b *Binding) Message(topic string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	payload, ok := b.cache[topic]
	if ok {
		delete(b.cache, topic)
	}
	return payload, ok
}

// Start installs the state listener and connects. It returns once the first
// connection attempt completes or ctx is done.
func (b *Binding) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("mqtt: binding already started")
	}
	b.started = true
	b.mu.Unlock()

	b.target.OnStateChange(b.onStateChange)

	b.logger.Info("connecting to broker",
		"broker", b.cfg.BrokerURL,
		"client_id", b.cfg.ClientID,
	)

	token := b.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", b.cfg.BrokerURL, err)
	}
	return nil
}

// Stop disconnects and forces the target OFFLINE. The connection-lost
// handler does not fire on a requested disconnect.
func (b *Binding) Stop() {
	b.client.Disconnect(disconnectQuiesceMS)
	b.target.SetConnected(false)
	b.logger.Info("disconnected from broker", "broker", b.cfg.BrokerURL)
}

// Publish sends payload and waits for the broker to acknowledge it.
func (b *Binding) Publish(topic, payload string, qos byte, retain bool) error {
	if !b.client.IsConnected() {
		return ErrNotConnected
	}
	token := b.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out after %s", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

const (
	disconnectQuiesceMS = 250
	publishTimeout      = 5 * time.Second
	subscribeTimeout    = 5 * time.Second
)

// onConnect runs on every (re)connect, in its own goroutine.
func (b *Binding) onConnect(_ MQTT.Client) {
	b.logger.Info("connected to broker", "client_id", b.cfg.ClientID)

	b.target.SetConnected(true)

	for _, sub := range b.subscriptions() {
		token := b.client.Subscribe(sub.Topic, sub.QoS, b.handler(sub))
		if !token.WaitTimeout(subscribeTimeout) {
			b.logger.Warn("subscribe timed out", "topic", sub.Topic)
			continue
		}
		if err := token.Error(); err != nil {
			b.logger.Error("subscribe failed", "topic", sub.Topic, "error", err)
			continue
		}
		b.logger.Debug("subscribed", "topic", sub.Topic, "qos", sub.QoS, "rule", sub.rule, "raw", sub.raw)
	}
}

func (b *Binding) onConnectionLost(_ MQTT.Client, err error) {
	b.logger.Warn("connection lost", "client_id", b.cfg.ClientID, "error", err)
	b.target.SetConnected(false)
}

// subscription is one topic filter the binding subscribes to.
type subscription struct {
	Subscription
	rule bool
	raw  bool
}

// subscriptions merges rule topics and raw subscriptions. A topic in both is
// subscribed once at the higher QoS.
func (b *Binding) subscriptions() []subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []subscription
	index := make(map[string]int)

	for _, topic := range b.target.Topics() {
		index[topic] = len(out)
		out = append(out, subscription{
			Subscription: Subscription{Topic: topic, QoS: b.subQoS[topic]},
			rule:         true,
		})
	}
	for _, r := range b.raw {
		if i, ok := index[r.Topic]; ok {
			out[i].raw = true
			out[i].QoS = max(out[i].QoS, r.QoS)
			continue
		}
		index[r.Topic] = len(out)
		out = append(out, subscription{Subscription: r, raw: true})
	}
	return out
}

func (b *Binding) handler(sub subscription) MQTT.MessageHandler {
	return func(_ MQTT.Client, msg MQTT.Message) {
		topic, payload := msg.Topic(), string(msg.Payload())

		if sub.raw {
			b.mu.Lock()
			b.cache[topic] = payload
			b.mu.Unlock()
		}
		if sub.rule {
			matched := b.target.ApplyMessage(topic, payload)
			b.logger.Debug("message applied", "topic", topic, "payload", payload, "matched", matched)
		}
	}
}

// onStateChange publishes the new state, then runs the user listener.
// It may run inside a paho callback, so it never waits on the token.
func (b *Binding) onStateChange(state string) {
	// OFFLINE is only entered without a connection; the last will covers it.
	if b.cfg.StateTopic != "" && state != ir.OfflineState {
		token := b.client.Publish(b.cfg.StateTopic, b.cfg.StateQoS, b.cfg.RetainState, state)
		go func() {
			<-token.Done()
			if err := token.Error(); err != nil {
				b.logger.Warn("state publish failed", "topic", b.cfg.StateTopic, "state", state, "error", err)
			}
		}()
	}

	b.mu.Lock()
	fn := b.listener
	b.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}
