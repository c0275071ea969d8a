// Package config loads device configurations: the node identity, broker
// settings, rule table and task table a StateMQ node runs with.
//
// Configurations are YAML (.yaml, .yml) or CUE (.cue). YAML is decoded
// strictly, rejecting unknown fields. CUE files are unified with an embedded
// closed schema, which rejects unknown fields the same way.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is a device configuration.
type Config struct {
	Node          string         `yaml:"node" json:"node"`
	StateTopic    string         `yaml:"state_topic,omitempty" json:"state_topic,omitempty"`
	Broker        Broker         `yaml:"broker" json:"broker"`
	Subscriptions []Subscription `yaml:"subscriptions,omitempty" json:"subscriptions,omitempty"`
	Rules         []Rule         `yaml:"rules,omitempty" json:"rules,omitempty"`
	Tasks         []Task         `yaml:"tasks,omitempty" json:"tasks,omitempty"`
}

// Broker holds MQTT connection settings.
type Broker struct {
	URL         string `yaml:"url" json:"url"`
	ClientID    string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty"`
	KeepAlive   string `yaml:"keep_alive,omitempty" json:"keep_alive,omitempty"`
	StateQoS    int    `yaml:"state_qos,omitempty" json:"state_qos,omitempty"`
	RetainState bool   `yaml:"retain_state,omitempty" json:"retain_state,omitempty"`
	LastWill    *Will  `yaml:"last_will,omitempty" json:"last_will,omitempty"`
}

// KeepAliveDuration parses KeepAlive. Empty means the client default (0).
func (b Broker) KeepAliveDuration() (time.Duration, error) {
	if b.KeepAlive == "" {
		return 0, nil
	}
	return time.ParseDuration(b.KeepAlive)
}

// Will is the broker-published message on unexpected disconnect.
type Will struct {
	Topic   string `yaml:"topic" json:"topic"`
	Payload string `yaml:"payload,omitempty" json:"payload,omitempty"`
	QoS     int    `yaml:"qos,omitempty" json:"qos,omitempty"`
	Retain  bool   `yaml:"retain,omitempty" json:"retain,omitempty"`
}

// Subscription is a raw topic outside the rule table.
type Subscription struct {
	Topic string `yaml:"topic" json:"topic"`
	QoS   int    `yaml:"qos,omitempty" json:"qos,omitempty"`
}

// Rule maps (topic, payload) to a state. QoS is the subscribe QoS for the
// rule's topic; the highest QoS among rules sharing a topic wins.
type Rule struct {
	Topic   string `yaml:"topic" json:"topic"`
	Payload string `yaml:"payload" json:"payload"`
	State   string `yaml:"state" json:"state"`
	QoS     int    `yaml:"qos,omitempty" json:"qos,omitempty"`
}

// Task declares periodic work bound to a named action.
type Task struct {
	Name     string `yaml:"name" json:"name"`
	PeriodMS uint32 `yaml:"period_ms" json:"period_ms"`
	Stack    string `yaml:"stack,omitempty" json:"stack,omitempty"`
	Action   string `yaml:"action" json:"action"`
	Enabled  bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// Load reads a configuration, choosing the decoder by file extension.
// Parse failures are returned as *LoadError. Load does not validate; call
// Validate on the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to read config file: %v", err)}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".cue":
		return parseCUE(path, data)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported config format %q (want .yaml, .yml or .cue)", ext)}
	}
}

func parseYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return &cfg, nil
}

func parseCUE(path string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fromCUE(ErrCodeGeneric, err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fromCUE(ErrCodeLoadFailed, err)
	}

	v = schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(ErrCodeBuildFailed, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fromCUE(ErrCodeBuildFailed, err)
	}
	return &cfg, nil
}
