package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// StateChangeFunc receives the new state name after each observed change.
type StateChangeFunc func(state string)

// Engine holds the device state, the rule/task/state tables and the
// transition algorithm.
//
// Thread-safety model:
//   - Every exported method is safe from any goroutine
//   - All mutable fields are guarded by mu
//   - Observers and the listener run after mu is released, so they may
//     call back into the engine
//
// There is no teardown: an Engine lives as long as its owner keeps it.
type Engine struct {
	mu sync.Mutex

	states stateRegistry
	rules  ruleTable
	tasks  taskRegistry

	connected bool
	current   ir.StateID
	lastUser  ir.StateID // replayed on reconnect when it names a user state
	listener  StateChangeFunc

	// Set at construction, read without the lock.
	logger   *slog.Logger
	observer Observer
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger used for declaration diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver attaches observers. Multiple calls accumulate.
func WithObserver(obs ...Observer) EngineOption {
	return func(e *Engine) {
		var all []Observer
		if _, noop := e.observer.(NoopObserver); !noop {
			all = append(all, e.observer)
		}
		e.observer = NewCompositeObserver(append(all, obs...)...)
	}
}

// New creates a disconnected Engine in the OFFLINE state with empty tables.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		states:   newStateRegistry(),
		rules:    newRuleTable(),
		tasks:    newTaskRegistry(),
		current:  ir.OfflineID,
		lastUser: ir.ConnectedID,
		logger:   slog.Default(),
		observer: NoopObserver{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

//
// Declarations
//

// DeclareRule maps (topic, payload) to the named state and returns the
// state's id. Declaring the same state name again returns the same id.
//
// Reserved names (OFFLINE, CONNECTED) resolve to their reserved ids and are
// not added to the registry. On an empty topic or state name, a full rule
// table or a full registry the CONNECTED id is returned as a fallback; use
// TryDeclareRule to tell these cases apart.
func (e *Engine) DeclareRule(topic, payload, state string) ir.StateID {
	id, _ := e.TryDeclareRule(topic, payload, state)
	return id
}

// TryDeclareRule is DeclareRule with the fallback reason reported.
//
// The returned id is always the one DeclareRule would return. The error is
// ErrInvalidArgument (wrapped) or a *CapacityError.
func (e *Engine) TryDeclareRule(topic, payload, state string) (ir.StateID, error) {
	if topic == "" || state == "" {
		return ir.ConnectedID, fmt.Errorf("%w: rule needs a topic and a state name", ErrInvalidArgument)
	}

	e.mu.Lock()
	id, err := e.rules.register(&e.states, topic, payload, state)
	e.mu.Unlock()

	if err != nil {
		e.reportCapacity(err)
		return id, err
	}

	e.logger.Debug("rule declared",
		"topic", topic,
		"payload", payload,
		"state", state,
		"state_id", id,
	)
	return id, nil
}

// DeclareTask records a periodic task and returns its id, or ir.NoTask when
// fn is nil or the task table is full. The engine never runs the task.
func (e *Engine) DeclareTask(name string, periodMS uint32, stack ir.Stack, fn ir.TaskFunc, enabled bool) ir.TaskID {
	id, _ := e.TryDeclareTask(name, periodMS, stack, fn, enabled)
	return id
}

// TryDeclareTask is DeclareTask with the rejection reason reported.
func (e *Engine) TryDeclareTask(name string, periodMS uint32, stack ir.Stack, fn ir.TaskFunc, enabled bool) (ir.TaskID, error) {
	e.mu.Lock()
	id, err := e.tasks.register(name, periodMS, stack, fn, enabled)
	e.mu.Unlock()

	if err != nil {
		e.reportCapacity(err)
		return id, err
	}

	e.logger.Debug("task declared",
		"task", name,
		"task_id", id,
		"period_ms", periodMS,
		"stack", stack.String(),
		"enabled", enabled,
	)
	return id, nil
}

// SetTaskEnabled toggles a task. Returns false for an unknown id.
func (e *Engine) SetTaskEnabled(id ir.TaskID, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.setEnabled(id, enabled)
}

// TaskEnabled reports whether a task is enabled. False for an unknown id.
func (e *Engine) TaskEnabled(id ir.TaskID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.isEnabled(id)
}

// OnStateChange installs the state-change listener, replacing any previous
// one. A nil fn removes it.
func (e *Engine) OnStateChange(fn StateChangeFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = fn
}

//
// Transition triggers (driven by a transport)
//

// ApplyMessage transitions to the state mapped to (topic, payload).
// Returns false, with no side effects, when no rule matches.
func (e *Engine) ApplyMessage(topic, payload string) bool {
	e.mu.Lock()
	target, ok := e.rules.match(topic, payload)
	var c change
	if ok {
		c = e.transitionLocked(target, true)
	}
	e.mu.Unlock()

	e.observer.OnMessage(topic, payload, ok)
	if ok {
		e.notify(c)
	}
	return ok
}

// SetConnected updates the connectivity flag.
//
// Disconnecting forces OFFLINE. Connecting replays the last message-selected
// user state if there is one, otherwise enters CONNECTED. The replay does not
// count as a user-originated transition.
func (e *Engine) SetConnected(connected bool) {
	e.mu.Lock()
	e.connected = connected

	target := ir.OfflineID
	if connected {
		target = ir.ConnectedID
		if ir.IsUserState(e.lastUser) {
			target = e.lastUser
		}
	}

	c := e.transitionLocked(target, false)
	e.mu.Unlock()

	e.notify(c)
}

// change carries what notify needs out of the critical section.
type change struct {
	changed        bool
	from, to       ir.StateID
	state          string
	userOriginated bool
	listener       StateChangeFunc
}

// transitionLocked applies target. Caller must hold e.mu.
func (e *Engine) transitionLocked(target ir.StateID, userOriginated bool) change {
	from := e.current

	if !e.connected {
		target = ir.OfflineID
	} else {
		// While connected only CONNECTED or an assigned user state may be
		// held; anything else (including OFFLINE) falls back to CONNECTED.
		if !e.states.isUser(target) {
			target = ir.ConnectedID
		}
		if userOriginated && ir.IsUserState(target) {
			e.lastUser = target
		}
	}

	if target == from {
		return change{}
	}
	e.current = target

	return change{
		changed:        true,
		from:           from,
		to:             target,
		state:          e.states.nameOf(target),
		userOriginated: userOriginated,
		listener:       e.listener,
	}
}

// notify runs observers and the listener. Must be called without e.mu held.
func (e *Engine) notify(c change) {
	if !c.changed {
		return
	}
	e.observer.OnTransition(c.from, c.to, c.state, c.userOriginated)
	if c.listener != nil {
		c.listener(c.state)
	}
}

func (e *Engine) reportCapacity(err error) {
	var ce *CapacityError
	if !errors.As(err, &ce) {
		return
	}
	e.logger.Warn("declaration hit capacity",
		"code", string(ce.Code),
		"capacity", ce.Capacity,
		"name", ce.Name,
	)
	e.observer.OnCapacityExhausted(ce.Code, ce.Name)
}

//
// Queries
//

// State returns the current state name. Always a valid name: OFFLINE while
// disconnected, otherwise CONNECTED or a declared user state.
func (e *Engine) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states.nameOf(e.visibleLocked())
}

// StateID returns the current state id under the same rules as State.
func (e *Engine) StateID() ir.StateID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibleLocked()
}

// Connected returns the connectivity flag.
func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// visibleLocked derives the reported id from the current id and the
// connectivity flag. Caller must hold e.mu.
func (e *Engine) visibleLocked() ir.StateID {
	if !e.connected {
		return ir.OfflineID
	}
	if e.states.isUser(e.current) {
		return e.current
	}
	return ir.ConnectedID
}

// StateName resolves an id to its name. Unknown ids resolve to CONNECTED.
func (e *Engine) StateName(id ir.StateID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states.nameOf(id)
}

// LookupState resolves a name to its id without declaring it.
// Unknown names resolve to CONNECTED.
func (e *Engine) LookupState(name string) ir.StateID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states.idOf(name)
}

// KnownStates returns the declared user state names in id order, starting
// at ir.FirstUserID.
func (e *Engine) KnownStates() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states.snapshot()
}

// TaskCount returns the number of declared tasks.
func (e *Engine) TaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.count()
}

// TaskAt returns a copy of task i. False when i is out of range.
func (e *Engine) TaskAt(i int) (ir.TaskDef, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.at(i)
}

// RuleCount returns the number of declared rules.
func (e *Engine) RuleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.count()
}

// RuleAt returns a copy of rule i. False when i is out of range.
func (e *Engine) RuleAt(i int) (ir.Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.at(i)
}

// Topics returns the distinct rule topics in declaration order, for deriving
// subscription lists.
func (e *Engine) Topics() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules.topics()
}

// Snapshot is a point-in-time copy of the engine's machine fields.
type Snapshot struct {
	Connected     bool       `json:"connected"`
	StateID       ir.StateID `json:"state_id"`
	State         string     `json:"state"`
	LastUserState ir.StateID `json:"last_user_state_id"`
	KnownStates   int        `json:"known_states"`
	Rules         int        `json:"rules"`
	Tasks         int        `json:"tasks"`
}

// Snapshot returns all machine fields from one critical section.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.visibleLocked()
	return Snapshot{
		Connected:     e.connected,
		StateID:       id,
		State:         e.states.nameOf(id),
		LastUserState: e.lastUser,
		KnownStates:   e.states.count(),
		Rules:         e.rules.count(),
		Tasks:         e.tasks.count(),
	}
}
