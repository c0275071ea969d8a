package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Abhichasma/StateMQ/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database    string
	RunID       string // optional; latest run by default
	Transitions bool   // only transition entries
	ListRuns    bool
}

// TraceResult is the output of the trace command.
type TraceResult struct {
	Run     journal.Run     `json:"run"`
	Entries []journal.Entry `json:"entries"`
	Stats   TraceStats      `json:"stats"`
}

// TraceStats summarizes a run.
type TraceStats struct {
	Transitions int `json:"transitions"`
	Messages    int `json:"messages"`
	Unmatched   int `json:"unmatched"`
	Capacity    int `json:"capacity"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a journaled run",
		Long: `Print the entries a device recorded with run --journal.

Shows the latest run unless --run selects one. Entries are printed in
the order they were recorded.

Examples:
  statemq trace --db ./lab-node.db
  statemq trace --db ./lab-node.db --runs
  statemq trace --db ./lab-node.db --run 0190... --transitions --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().BoolVar(&opts.Transitions, "transitions", false, "show transitions only")
	cmd.Flags().BoolVar(&opts.ListRuns, "runs", false, "list runs instead of entries")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// journal.Open creates missing files; a trace of nothing is a usage error.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error("E005", fmt.Sprintf("journal not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()

	if opts.ListRuns {
		runs, err := j.Runs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRuns(formatter, runs)
	}

	run, err := selectRun(cmd, j, opts.RunID)
	if err != nil {
		if errors.Is(err, journal.ErrNoRuns) {
			_ = formatter.Error("E005", "journal has no runs", nil)
		}
		return WrapExitError(ExitCommandError, "failed to select run", err)
	}
	formatter.VerboseLog("Reading run %s (node %s)", run.ID, run.Node)

	var entries []journal.Entry
	if opts.Transitions {
		entries, err = j.Transitions(ctx, run.ID)
	} else {
		entries, err = j.ReadRun(ctx, run.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := TraceResult{Run: run, Entries: entries, Stats: stats(entries)}
	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}
	printTrace(formatter.Writer, result)
	return nil
}

// selectRun returns the run named by id, or the latest run when id is empty.
func selectRun(cmd *cobra.Command, j *journal.Journal, id string) (journal.Run, error) {
	if id == "" {
		return j.LatestRun(cmd.Context())
	}
	runs, err := j.Runs(cmd.Context())
	if err != nil {
		return journal.Run{}, err
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return journal.Run{}, fmt.Errorf("run %q not found", id)
}

func stats(entries []journal.Entry) TraceStats {
	var s TraceStats
	for _, e := range entries {
		switch e.Kind {
		case journal.KindTransition:
			s.Transitions++
		case journal.KindMessage:
			s.Messages++
			if !e.Matched {
				s.Unmatched++
			}
		case journal.KindCapacity:
			s.Capacity++
		}
	}
	return s
}

func printTrace(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Run %s (node %s, engine %s)\n\n", result.Run.ID, result.Run.Node, result.Run.EngineVersion)

	for _, e := range result.Entries {
		switch e.Kind {
		case journal.KindTransition:
			origin := "system"
			if e.User {
				origin = "user"
			}
			fmt.Fprintf(w, "%4d  transition  %d -> %d  %s (%s)\n", e.Seq, e.FromID, e.ToID, e.State, origin)
		case journal.KindMessage:
			match := "unmatched"
			if e.Matched {
				match = "matched"
			}
			fmt.Fprintf(w, "%4d  message     %s %q  %s\n", e.Seq, e.Topic, e.Payload, match)
		case journal.KindCapacity:
			fmt.Fprintf(w, "%4d  capacity    %s  %s\n", e.Seq, e.Code, e.Topic)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d transition(s), %d message(s) (%d unmatched), %d capacity event(s)\n",
		result.Stats.Transitions, result.Stats.Messages, result.Stats.Unmatched, result.Stats.Capacity)
}

func outputRuns(formatter *OutputFormatter, runs []journal.Run) error {
	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  engine %s\n", r.ID, r.Node, r.EngineVersion)
	}
	return nil
}
