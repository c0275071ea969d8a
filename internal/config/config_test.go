package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/ir"
	"github.com/Abhichasma/StateMQ/internal/transport/mqtt"
)

func labActions() Actions {
	noop := func() {}
	return Actions{"publish_state": noop, "print_chat": noop}
}

func codesOf(errs []error) []string {
	codes := make([]string, 0, len(errs))
	for _, err := range errs {
		var le *LoadError
		if errors.As(err, &le) {
			codes = append(codes, le.Code)
		} else {
			codes = append(codes, "?")
		}
	}
	return codes
}

func assertLabNode(t *testing.T, cfg *Config) {
	t.Helper()

	assert.Equal(t, "lab-node", cfg.Node)
	assert.Equal(t, "lab/node/out", cfg.StateTopic)
	assert.Equal(t, "tcp://localhost:1883", cfg.Broker.URL)
	assert.True(t, cfg.Broker.RetainState)
	require.NotNil(t, cfg.Broker.LastWill)
	assert.Equal(t, Will{Topic: "lab/node/lwt", Payload: "offline", QoS: 2, Retain: true}, *cfg.Broker.LastWill)

	assert.Equal(t, []Subscription{{Topic: "hello/chat"}}, cfg.Subscriptions)
	require.Len(t, cfg.Rules, 3)
	assert.Equal(t, Rule{Topic: "lab/node/state", Payload: "run", State: "RUNNING", QoS: 2}, cfg.Rules[0])
	assert.Equal(t, "PATTERN", cfg.Rules[2].State)

	require.Len(t, cfg.Tasks, 2)
	assert.Equal(t, Task{Name: "pub", PeriodMS: 200, Stack: "small", Action: "publish_state", Enabled: true}, cfg.Tasks[0])
	assert.Equal(t, "", cfg.Tasks[1].Stack)

	assert.Empty(t, cfg.Validate(labActions()))
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "lab-node.yaml"))
	require.NoError(t, err)
	assertLabNode(t, cfg)
}

func TestLoad_CUE(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "lab-node.cue"))
	require.NoError(t, err)
	assertLabNode(t, cfg)
}

func TestLoad_FormatsAgree(t *testing.T) {
	fromYAML, err := Load(filepath.Join("testdata", "lab-node.yaml"))
	require.NoError(t, err)
	fromCUE, err := Load(filepath.Join("testdata", "lab-node.cue"))
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromCUE)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	for _, name := range []string{"unknown-field.yaml", "unknown-field.cue"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", name))
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Contains(t, []string{ErrCodeLoadFailed, ErrCodeBuildFailed}, le.Code)
		})
	}
}

func TestLoad_CUESchemaTypeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
node: "n"
broker: url: "tcp://b:1883"
tasks: [{name: "t", period_ms: -5, action: "a"}]
`), 0o644))

	_, err := Load(path)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.toml")
	require.NoError(t, os.WriteFile(path, []byte("node = 'x'"), 0o644))

	_, err := Load(path)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeFormat, le.Code)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "invalid.yaml"))
	require.NoError(t, err)

	errs := cfg.Validate(labActions())
	assert.Equal(t, []string{
		ErrCodeNode,
		ErrCodeBroker, ErrCodeBroker,
		ErrCodeLastWill, ErrCodeQoS,
		ErrCodeRawTopic,
		ErrCodeRule, ErrCodeRule,
		ErrCodeStateName, ErrCodeQoS,
		ErrCodeTask, ErrCodeTask, ErrCodeStack, ErrCodeAction,
		ErrCodeAction,
	}, codesOf(errs))

	assert.EqualError(t, errs[len(errs)-1], `E222: tasks[1].action: unknown action "missing"`)
}

func TestValidate_NilResolverSkipsActionLookup(t *testing.T) {
	cfg := &Config{
		Node:   "n",
		Broker: Broker{URL: "tcp://b:1883"},
		Tasks:  []Task{{Name: "t", PeriodMS: 10, Action: "anything"}},
	}
	assert.Empty(t, cfg.Validate(nil))
}

func TestValidate_Capacity(t *testing.T) {
	cfg := &Config{Node: "n", Broker: Broker{URL: "tcp://b:1883"}}
	for i := 0; i < ir.MaxRules+1; i++ {
		cfg.Rules = append(cfg.Rules, Rule{Topic: "t", Payload: string(rune('a' + i%26)), State: "S"})
	}
	for i := 0; i < ir.MaxTasks+1; i++ {
		cfg.Tasks = append(cfg.Tasks, Task{Name: "t", PeriodMS: 1, Action: "a"})
	}

	assert.Equal(t, []string{ErrCodeRuleCapacity, ErrCodeTaskCapacity}, codesOf(cfg.Validate(nil)))
}

func TestValidate_StateCapacityIgnoresReservedAndDuplicates(t *testing.T) {
	cfg := &Config{Node: "n", Broker: Broker{URL: "tcp://b:1883"}}
	cfg.Rules = []Rule{
		{Topic: "t", Payload: "a", State: "CONNECTED"},
		{Topic: "t", Payload: "b", State: "OFFLINE"},
		{Topic: "t", Payload: "c", State: "SAME"},
		{Topic: "u", Payload: "c", State: "SAME"},
	}
	assert.Empty(t, cfg.Validate(nil))
}

func TestApply_DeclaresIntoEngine(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "lab-node.yaml"))
	require.NoError(t, err)

	e := engine.New()
	applied, err := cfg.Apply(e, labActions())
	require.NoError(t, err)

	assert.Equal(t, []ir.StateID{2, 3, 4}, applied.Rules)
	assert.Equal(t, []ir.TaskID{0, 1}, applied.Tasks)
	assert.Equal(t, []string{"RUNNING", "IDLE", "PATTERN"}, e.KnownStates())

	task, ok := e.TaskAt(1)
	require.True(t, ok)
	assert.Equal(t, "chat", task.Name)
	assert.Equal(t, 50*time.Millisecond, task.Period)
	assert.Equal(t, ir.StackSmall, task.Stack)
	assert.True(t, task.Enabled)
}

func TestApply_UnknownAction(t *testing.T) {
	cfg := &Config{Tasks: []Task{{Name: "t", PeriodMS: 10, Action: "nope"}}}

	_, err := cfg.Apply(engine.New(), Actions{})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeAction, le.Code)
}

func TestApply_StopsAtCapacity(t *testing.T) {
	cfg := &Config{}
	for i := 0; i < ir.MaxRules+1; i++ {
		cfg.Rules = append(cfg.Rules, Rule{Topic: "t", Payload: string(rune('a' + i%26)), State: "S"})
	}

	applied, err := cfg.Apply(engine.New(), nil)
	require.Error(t, err)
	assert.True(t, engine.IsRuleTableFull(err))
	assert.Len(t, applied.Rules, ir.MaxRules)
}

func TestConfig_MQTT(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "lab-node.yaml"))
	require.NoError(t, err)

	mc, err := cfg.MQTT()
	require.NoError(t, err)
	assert.Equal(t, mqtt.Config{
		BrokerURL:   "tcp://localhost:1883",
		ClientID:    "lab-node",
		KeepAlive:   5 * time.Second,
		StateTopic:  "lab/node/out",
		RetainState: true,
		LastWill:    &mqtt.Will{Topic: "lab/node/lwt", Payload: "offline", QoS: 2, Retain: true},
	}, mc)

	assert.Equal(t, map[string]byte{"lab/node/state": 2}, cfg.SubscribeQoS())
	assert.Equal(t, []mqtt.Subscription{{Topic: "hello/chat"}}, cfg.RawSubscriptions())
}

func TestLoadError_Format(t *testing.T) {
	assert.Equal(t, "E201: node: node name is required",
		(&LoadError{Code: ErrCodeNode, Path: "node", Message: "node name is required"}).Error())
	assert.Equal(t, "E005: gone", (&LoadError{Code: ErrCodeNotFound, Message: "gone"}).Error())
}
