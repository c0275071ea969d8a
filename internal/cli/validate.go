package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Abhichasma/StateMQ/internal/config"
	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/ir"
)

// Issue is one configuration problem.
type Issue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// RuleRow is a declared rule with the id of its target state.
type RuleRow struct {
	Topic   string     `json:"topic"`
	Payload string     `json:"payload"`
	State   string     `json:"state"`
	StateID ir.StateID `json:"state_id"`
}

// StateRow is an entry of the state registry.
type StateRow struct {
	ID   ir.StateID `json:"id"`
	Name string     `json:"name"`
}

// TaskRow is a declared task.
type TaskRow struct {
	ID       ir.TaskID `json:"id"`
	Name     string    `json:"name"`
	PeriodMS uint32    `json:"period_ms"`
	Stack    string    `json:"stack"`
	Action   string    `json:"action"`
	Enabled  bool      `json:"enabled"`
}

// ValidationResult is the output of the validate command.
type ValidationResult struct {
	Valid  bool       `json:"valid"`
	Node   string     `json:"node,omitempty"`
	Rules  []RuleRow  `json:"rules,omitempty"`
	States []StateRow `json:"states,omitempty"`
	Tasks  []TaskRow  `json:"tasks,omitempty"`
	Errors []Issue    `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a device configuration",
		Long: `Load a device configuration (.yaml, .yml or .cue), report every
problem found, and show the ids a fresh engine assigns to its rules,
states and tasks.

Exit codes:
  0 - Configuration valid
  1 - Configuration has problems
  2 - Configuration could not be read

Examples:
  statemq validate ./lab-node.yaml
  statemq validate ./lab-node.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(path)
	if err != nil {
		issue := toIssue(err)
		_ = formatter.Error(issue.Code, issue.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
	}
	formatter.VerboseLog("Loaded %s: %d rule(s), %d task(s)", path, len(cfg.Rules), len(cfg.Tasks))

	env := &actionEnv{cfg: cfg}
	if errs := cfg.Validate(env.actions()); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(engine.WithLogger(quiet))
	applied, err := cfg.Apply(eng, env.actions())
	if err != nil {
		return outputValidationErrors(formatter, []error{err})
	}

	return outputValidateSuccess(formatter, describe(cfg, eng, applied))
}

// describe builds the tables shown on success.
func describe(cfg *config.Config, eng *engine.Engine, applied *config.Applied) ValidationResult {
	result := ValidationResult{Valid: true, Node: cfg.Node}

	for i, id := range applied.Rules {
		r := cfg.Rules[i]
		result.Rules = append(result.Rules, RuleRow{Topic: r.Topic, Payload: r.Payload, State: eng.StateName(id), StateID: id})
	}

	result.States = []StateRow{
		{ID: ir.OfflineID, Name: ir.OfflineState},
		{ID: ir.ConnectedID, Name: ir.ConnectedState},
	}
	for i, name := range eng.KnownStates() {
		result.States = append(result.States, StateRow{ID: ir.FirstUserID + ir.StateID(i), Name: name})
	}

	for i, id := range applied.Tasks {
		def, _ := eng.TaskAt(int(id))
		result.Tasks = append(result.Tasks, TaskRow{
			ID:       id,
			Name:     def.Name,
			PeriodMS: def.PeriodMS(),
			Stack:    def.Stack.String(),
			Action:   cfg.Tasks[i].Action,
			Enabled:  def.Enabled,
		})
	}
	return result
}

func toIssue(err error) Issue {
	var le *config.LoadError
	if errors.As(err, &le) {
		msg := le.Message
		if le.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
		}
		return Issue{Code: le.Code, Path: le.Path, Message: msg}
	}
	return Issue{Code: config.ErrCodeGeneric, Message: err.Error()}
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s is valid\n\n", result.Node)

	fmt.Fprintln(w, "States:")
	for _, s := range result.States {
		fmt.Fprintf(w, "  %3d  %s\n", s.ID, s.Name)
	}

	fmt.Fprintln(w, "Rules:")
	for _, r := range result.Rules {
		fmt.Fprintf(w, "  %s %q -> %s (%d)\n", r.Topic, r.Payload, r.State, r.StateID)
	}

	if len(result.Tasks) > 0 {
		fmt.Fprintln(w, "Tasks:")
		for _, t := range result.Tasks {
			enabled := "disabled"
			if t.Enabled {
				enabled = "enabled"
			}
			fmt.Fprintf(w, "  %3d  %s every %dms on %s stack: %s, %s\n", t.ID, t.Name, t.PeriodMS, t.Stack, t.Action, enabled)
		}
	}
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, errs []error) error {
	issues := make([]Issue, 0, len(errs))
	for _, err := range errs {
		issues = append(issues, toIssue(err))
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", issue.Code, issue.Path, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Code, issue.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
