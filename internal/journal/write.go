package journal

import (
	"context"
	"fmt"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// BeginRun records a new run. Uses ON CONFLICT(id) DO NOTHING, so beginning
// the same run twice is harmless.
func (j *Journal) BeginRun(ctx context.Context, runID, node string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, node, engine_version, journal_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, runID, node, ir.EngineVersion, ir.JournalVersion)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// Append inserts an entry. The run must exist (foreign key constraint).
// A duplicate (run_id, seq) is an error: sequence numbers are never reused.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO entries
		(run_id, seq, kind, from_id, to_id, state, user, topic, payload, matched, code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.RunID,
		e.Seq,
		string(e.Kind),
		int(e.FromID),
		int(e.ToID),
		e.State,
		boolToInt(e.User),
		e.Topic,
		e.Payload,
		boolToInt(e.Matched),
		e.Code,
	)
	if err != nil {
		return fmt.Errorf("append %s entry: %w", e.Kind, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
