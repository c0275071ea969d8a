package engine

import "github.com/Abhichasma/StateMQ/internal/ir"

// stateRegistry maps user state names to stable ids.
//
// Index i of names holds the state with id ir.FirstUserID+i. Names are stored
// in normalized form and the slice only ever grows.
//
// Not safe for concurrent use; the Engine lock guards it.
type stateRegistry struct {
	names []string
}

func newStateRegistry() stateRegistry {
	return stateRegistry{names: make([]string, 0, ir.MaxKnownStates)}
}

// declare returns the id for name, registering it if needed.
// Reserved names return their reserved id without registering. A full
// registry returns ir.ConnectedID together with a CapacityError.
func (r *stateRegistry) declare(name string) (ir.StateID, error) {
	n := ir.NormalizeStateName(name)
	if id, ok := r.lookup(n); ok {
		return id, nil
	}
	if len(r.names) >= ir.MaxKnownStates {
		return ir.ConnectedID, &CapacityError{Code: ErrCodeStateRegistryFull, Capacity: ir.MaxKnownStates, Name: n}
	}
	r.names = append(r.names, n)
	return ir.FirstUserID + ir.StateID(len(r.names)-1), nil
}

// idOf resolves name without registering it. Unknown names resolve to
// ir.ConnectedID.
func (r *stateRegistry) idOf(name string) ir.StateID {
	if id, ok := r.lookup(ir.NormalizeStateName(name)); ok {
		return id
	}
	return ir.ConnectedID
}

// lookup expects an already normalized name.
func (r *stateRegistry) lookup(n string) (ir.StateID, bool) {
	switch n {
	case ir.OfflineState:
		return ir.OfflineID, true
	case ir.ConnectedState:
		return ir.ConnectedID, true
	}
	for i, known := range r.names {
		if known == n {
			return ir.FirstUserID + ir.StateID(i), true
		}
	}
	return 0, false
}

// nameOf is total: ids that were never assigned resolve to CONNECTED so the
// engine always has a valid textual state.
func (r *stateRegistry) nameOf(id ir.StateID) string {
	switch id {
	case ir.OfflineID:
		return ir.OfflineState
	case ir.ConnectedID:
		return ir.ConnectedState
	}
	if idx := int(id - ir.FirstUserID); idx < len(r.names) {
		return r.names[idx]
	}
	return ir.ConnectedState
}

// isUser reports whether id is an assigned user state.
func (r *stateRegistry) isUser(id ir.StateID) bool {
	return ir.IsUserState(id) && int(id-ir.FirstUserID) < len(r.names)
}

func (r *stateRegistry) count() int {
	return len(r.names)
}

// snapshot returns a copy of the user state names in id order.
func (r *stateRegistry) snapshot() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
