// Package scheduler runs the periodic tasks declared on an engine.
//
// The engine only records tasks. The scheduler snapshots the task table when
// Run starts and drives one goroutine per task, checking the enabled flag on
// every tick so tasks can be toggled while running.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// TaskSource is the read side of a task table. *engine.Engine satisfies it.
type TaskSource interface {
	TaskCount() int
	TaskAt(i int) (ir.TaskDef, bool)
	TaskEnabled(id ir.TaskID) bool
}

// Scheduler drives the tasks of a TaskSource.
type Scheduler struct {
	src        TaskSource
	logger     *slog.Logger
	runOnStart bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// RunOnStart invokes each enabled task once immediately instead of waiting
// a full period for its first run.
func RunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

// New creates a scheduler over src.
func New(src TaskSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		src:    src,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts every task with a non-zero period and blocks until ctx is
// cancelled. Tasks declared after Run starts are not picked up.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	started := 0
	for i := 0; i < s.src.TaskCount(); i++ {
		def, ok := s.src.TaskAt(i)
		if !ok {
			continue
		}
		if def.Period <= 0 {
			s.logger.Warn("task has no period, not scheduling",
				"task", def.Name,
				"task_id", def.ID,
			)
			continue
		}

		started++
		g.Go(func() error {
			s.loop(gctx, def)
			return nil
		})
	}

	s.logger.Info("scheduler started", "tasks", started)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	err := g.Wait()

	s.logger.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, def ir.TaskDef) {
	s.logger.Debug("task loop started",
		"task", def.Name,
		"task_id", def.ID,
		"period", def.Period,
		"stack", def.Stack.String(),
	)

	if s.runOnStart {
		s.tick(def)
	}

	ticker := time.NewTicker(def.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(def)
		}
	}
}

// tick invokes the callback if the task is enabled right now.
func (s *Scheduler) tick(def ir.TaskDef) {
	if !s.src.TaskEnabled(def.ID) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked",
				"task", def.Name,
				"task_id", def.ID,
				"panic", r,
			)
		}
	}()
	def.Callback()
}
