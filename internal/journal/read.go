package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// ErrNoRuns is returned by LatestRun on an empty journal.
var ErrNoRuns = errors.New("journal has no runs")

// Runs returns all runs in the order they began.
// Returns an empty slice (not nil) when there are none.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, node, engine_version, journal_version
		FROM runs
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Node, &r.EngineVersion, &r.JournalVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently begun run, or ErrNoRuns.
func (j *Journal) LatestRun(ctx context.Context) (Run, error) {
	var r Run
	err := j.db.QueryRowContext(ctx, `
		SELECT id, node, engine_version, journal_version
		FROM runs
		ORDER BY rowid DESC
		LIMIT 1
	`).Scan(&r.ID, &r.Node, &r.EngineVersion, &r.JournalVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	if err != nil {
		return Run{}, fmt.Errorf("query latest run: %w", err)
	}
	return r, nil
}

// ReadRun returns the entries of a run ordered by seq ASC.
// Returns an empty slice (not nil) for an unknown or empty run.
func (j *Journal) ReadRun(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, from_id, to_id, state, user, topic, payload, matched, code
		FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Transitions returns only the transition entries of a run, ordered by seq.
func (j *Journal) Transitions(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, from_id, to_id, state, user, topic, payload, matched, code
		FROM entries
		WHERE run_id = ? AND kind = ?
		ORDER BY seq ASC
	`, runID, string(KindTransition))
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e             Entry
		kind          string
		from, to      int
		user, matched int
	)
	err := rows.Scan(&e.RunID, &e.Seq, &kind, &from, &to, &e.State, &user, &e.Topic, &e.Payload, &matched, &e.Code)
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Kind = Kind(kind)
	e.FromID = ir.StateID(from)
	e.ToID = ir.StateID(to)
	e.User = user != 0
	e.Matched = matched != 0
	return e, nil
}
