package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/ir"
	"github.com/Abhichasma/StateMQ/internal/journal"
	"github.com/Abhichasma/StateMQ/internal/testutil"
)

// seedJournal records two runs of a small device and returns the db path.
func seedJournal(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	record := func(runID string, drive func(*engine.Engine)) {
		rec, err := j.Recorder(ctx, runID, "bench", journal.WithSequencer(testutil.NewDeterministicClock()))
		require.NoError(t, err)
		eng := engine.New(engine.WithObserver(rec))
		eng.DeclareRule("t", "hi", "HELLO")
		drive(eng)
	}

	record("run-1", func(e *engine.Engine) {
		e.SetConnected(true)
	})
	record("run-2", func(e *engine.Engine) {
		e.SetConnected(true)
		e.ApplyMessage("t", "hi")
		e.ApplyMessage("t", "nope")
		e.SetConnected(false)
	})

	return dbPath
}

func runTraceCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := runTraceCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	output, err := runTraceCommand(t, "text", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "journal not found")
}

func TestTraceEmptyJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	output, err := runTraceCommand(t, "text", "--db", dbPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, journal.ErrNoRuns)
	assert.Contains(t, output, "journal has no runs")
}

func TestTraceLatestRun(t *testing.T) {
	output, err := runTraceCommand(t, "text", "--db", seedJournal(t))
	require.NoError(t, err)

	assert.Contains(t, output, "Run run-2 (node bench, engine "+ir.EngineVersion+")")
	assert.Contains(t, output, "   1  transition  0 -> 1  CONNECTED (system)")
	assert.Contains(t, output, `   2  message     t "hi"  matched`)
	assert.Contains(t, output, "   3  transition  1 -> 2  HELLO (user)")
	assert.Contains(t, output, `   4  message     t "nope"  unmatched`)
	assert.Contains(t, output, "   5  transition  2 -> 0  OFFLINE (system)")
	assert.Contains(t, output, "3 transition(s), 2 message(s) (1 unmatched), 0 capacity event(s)")
}

func TestTraceSelectedRunJSON(t *testing.T) {
	output, err := runTraceCommand(t, "json", "--db", seedJournal(t), "--run", "run-1")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.Run.ID)
	require.Len(t, resp.Data.Entries, 1)
	assert.Equal(t, "CONNECTED", resp.Data.Entries[0].State)
	assert.Equal(t, TraceStats{Transitions: 1}, resp.Data.Stats)
}

func TestTraceTransitionsOnly(t *testing.T) {
	output, err := runTraceCommand(t, "json", "--db", seedJournal(t), "--transitions")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))

	var states []string
	for _, e := range resp.Data.Entries {
		assert.Equal(t, journal.KindTransition, e.Kind)
		states = append(states, e.State)
	}
	assert.Equal(t, []string{"CONNECTED", "HELLO", "OFFLINE"}, states)
}

func TestTraceUnknownRun(t *testing.T) {
	_, err := runTraceCommand(t, "text", "--db", seedJournal(t), "--run", "run-9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `run "run-9" not found`)
}

func TestTraceListRuns(t *testing.T) {
	output, err := runTraceCommand(t, "text", "--db", seedJournal(t), "--runs")
	require.NoError(t, err)
	assert.Contains(t, output, "run-1  bench  engine "+ir.EngineVersion)
	assert.Contains(t, output, "run-2  bench  engine "+ir.EngineVersion)
	assert.Less(t, bytes.Index([]byte(output), []byte("run-1")), bytes.Index([]byte(output), []byte("run-2")))
}
