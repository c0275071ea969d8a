package engine

import "github.com/Abhichasma/StateMQ/internal/ir"

// ruleTable is the ordered, append-only (topic, payload) -> state table.
//
// Topic and payload are kept as the caller's strings. Go strings are
// immutable, so sharing them carries no lifetime obligation for the caller.
//
// Not safe for concurrent use; the Engine lock guards it.
type ruleTable struct {
	rules []ir.Rule
}

func newRuleTable() ruleTable {
	return ruleTable{rules: make([]ir.Rule, 0, ir.MaxRules)}
}

// register resolves stateName through reg and appends the rule.
//
// When the table is full nothing is registered: the name is only resolved
// (unknown names resolve to ir.ConnectedID) and a CapacityError is returned.
// When the registry is full the rule is still appended with the CONNECTED
// fallback target, and the registry's CapacityError is returned.
func (t *ruleTable) register(reg *stateRegistry, topic, payload, stateName string) (ir.StateID, error) {
	if len(t.rules) >= ir.MaxRules {
		return reg.idOf(stateName), &CapacityError{Code: ErrCodeRuleTableFull, Capacity: ir.MaxRules, Name: topic}
	}

	id, err := reg.declare(stateName)
	t.rules = append(t.rules, ir.Rule{Topic: topic, Payload: payload, StateID: id})
	return id, err
}

// match scans in declaration order; the first exact hit wins.
// A miss returns false, distinct from a rule that targets CONNECTED.
func (t *ruleTable) match(topic, payload string) (ir.StateID, bool) {
	for _, r := range t.rules {
		if r.Topic == topic && r.Payload == payload {
			return r.StateID, true
		}
	}
	return 0, false
}

func (t *ruleTable) count() int {
	return len(t.rules)
}

func (t *ruleTable) at(i int) (ir.Rule, bool) {
	if i < 0 || i >= len(t.rules) {
		return ir.Rule{}, false
	}
	return t.rules[i], true
}

// topics returns the distinct rule topics in first-declaration order.
func (t *ruleTable) topics() []string {
	seen := make(map[string]struct{}, len(t.rules))
	out := make([]string, 0, len(t.rules))
	for _, r := range t.rules {
		if _, ok := seen[r.Topic]; ok {
			continue
		}
		seen[r.Topic] = struct{}{}
		out = append(out, r.Topic)
	}
	return out
}
