package mqtt

import (
	"errors"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// fakeToken is an already-completed MQTT.Token.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload string
}

// fakeClient records calls and lets tests drive the paho callbacks captured
// from the client options.
type fakeClient struct {
	mu         sync.Mutex
	opts       *MQTT.ClientOptions
	connected  bool
	connectErr error
	subscribed map[string]byte
	handlers   map[string]MQTT.MessageHandler
	published  []published
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		subscribed: make(map[string]byte),
		handlers:   make(map[string]MQTT.MessageHandler),
	}
}

func (c *fakeClient) factory(opts *MQTT.ClientOptions) Client {
	c.opts = opts
	return c
}

// Connect completes synchronously and fires OnConnect like paho does.
func (c *fakeClient) Connect() MQTT.Token {
	if c.connectErr != nil {
		return newFakeToken(c.connectErr)
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.opts.OnConnect(nil)
	return newFakeToken(nil)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Subscribe(topic string, qos byte, cb MQTT.MessageHandler) MQTT.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[topic] = qos
	c.handlers[topic] = cb
	return newFakeToken(nil)
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return newFakeToken(errors.New("not connected"))
	}
	c.published = append(c.published, published{topic: topic, qos: qos, retain: retained, payload: payload.(string)})
	return newFakeToken(nil)
}

// deliver routes a message through the handler registered for filter.
func (c *fakeClient) deliver(filter, topic, payload string) {
	c.mu.Lock()
	h := c.handlers[filter]
	c.mu.Unlock()
	h(nil, fakeMessage{topic: topic, payload: []byte(payload)})
}

// dropConnection simulates a lost connection.
func (c *fakeClient) dropConnection() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.opts.OnConnectionLost(nil, errors.New("broken pipe"))
}

// reconnect simulates paho's auto reconnect.
func (c *fakeClient) reconnect() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.opts.OnConnect(nil)
}

func (c *fakeClient) publishedTo(topic string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}
