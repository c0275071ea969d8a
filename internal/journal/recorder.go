package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/ir"
)

// writeTimeout bounds a single append so a locked database cannot stall the
// goroutine delivering engine events.
const writeTimeout = 2 * time.Second

// Recorder journals engine events for one run. It implements engine.Observer.
//
// Observer callbacks cannot return errors, so write failures are logged and
// the event is dropped.
type Recorder struct {
	journal *Journal
	runID   string
	clock   Sequencer
	logger  *slog.Logger
}

var _ engine.Observer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSequencer replaces the default Clock. Tests use a deterministic clock.
func WithSequencer(s Sequencer) RecorderOption {
	return func(r *Recorder) {
		if s != nil {
			r.clock = s
		}
	}
}

// WithRecorderLogger sets the logger for write failures.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Recorder begins runID and returns an observer writing into it.
func (j *Journal) Recorder(ctx context.Context, runID, node string, opts ...RecorderOption) (*Recorder, error) {
	if err := j.BeginRun(ctx, runID, node); err != nil {
		return nil, err
	}

	r := &Recorder{
		journal: j,
		runID:   runID,
		clock:   NewClock(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunID returns the run this recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) OnTransition(from, to ir.StateID, state string, userOriginated bool) {
	r.append(Entry{
		Kind:   KindTransition,
		FromID: from,
		ToID:   to,
		State:  state,
		User:   userOriginated,
	})
}

func (r *Recorder) OnMessage(topic, payload string, matched bool) {
	r.append(Entry{
		Kind:    KindMessage,
		Topic:   topic,
		Payload: payload,
		Matched: matched,
	})
}

func (r *Recorder) OnCapacityExhausted(code engine.CapacityErrorCode, name string) {
	r.append(Entry{
		Kind:  KindCapacity,
		Code:  string(code),
		Topic: name,
	})
}

func (r *Recorder) append(e Entry) {
	e.RunID = r.runID
	e.Seq = r.clock.Next()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.journal.Append(ctx, e); err != nil {
		r.logger.Error("journal write failed",
			"run_id", r.runID,
			"seq", e.Seq,
			"kind", string(e.Kind),
			"error", err,
		)
	}
}
