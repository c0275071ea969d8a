package engine

import (
	"time"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// taskRegistry records periodic-work declarations. It performs no
// scheduling; an external scheduler polls it.
//
// Not safe for concurrent use; the Engine lock guards it.
type taskRegistry struct {
	tasks []ir.TaskDef
}

func newTaskRegistry() taskRegistry {
	return taskRegistry{tasks: make([]ir.TaskDef, 0, ir.MaxTasks)}
}

func (r *taskRegistry) register(name string, periodMS uint32, stack ir.Stack, fn ir.TaskFunc, enabled bool) (ir.TaskID, error) {
	if fn == nil {
		return ir.NoTask, ErrInvalidArgument
	}
	if len(r.tasks) >= ir.MaxTasks {
		return ir.NoTask, &CapacityError{Code: ErrCodeTaskTableFull, Capacity: ir.MaxTasks, Name: name}
	}

	id := ir.TaskID(len(r.tasks))
	r.tasks = append(r.tasks, ir.TaskDef{
		ID:       id,
		Name:     name,
		Period:   time.Duration(periodMS) * time.Millisecond,
		Stack:    stack,
		Callback: fn,
		Enabled:  enabled,
	})
	return id, nil
}

func (r *taskRegistry) valid(id ir.TaskID) bool {
	return id >= 0 && int(id) < len(r.tasks)
}

func (r *taskRegistry) setEnabled(id ir.TaskID, enabled bool) bool {
	if !r.valid(id) {
		return false
	}
	r.tasks[id].Enabled = enabled
	return true
}

func (r *taskRegistry) isEnabled(id ir.TaskID) bool {
	if !r.valid(id) {
		return false
	}
	return r.tasks[id].Enabled
}

func (r *taskRegistry) count() int {
	return len(r.tasks)
}

func (r *taskRegistry) at(i int) (ir.TaskDef, bool) {
	if !r.valid(ir.TaskID(i)) {
		return ir.TaskDef{}, false
	}
	return r.tasks[i], true
}
