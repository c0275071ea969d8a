package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Abhichasma/StateMQ/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name       string   `json:"name"`
	Pass       bool     `json:"pass"`
	FinalState string   `json:"final_state,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario|dir>...",
		Short: "Run state machine scenarios",
		Long: `Run YAML scenarios against a fresh engine each.

A scenario declares rules, drives connectivity changes and messages, and
checks the resulting states. When <scenario-dir>/golden/<name>.golden
exists the recorded trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  statemq test ./scenarios
  statemq test ./scenarios/hello_bye_replay.yaml
  statemq test ./scenarios --filter "hello_*" --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	var scenarioFiles []string
	for _, p := range paths {
		files, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		scenarioFiles = append(scenarioFiles, files...)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, file := range scenarioFiles {
		sr := runScenario(file, opts)
		if opts.Format != "json" {
			printScenario(cmd, sr)
		}

		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles expands path into scenario files. A file is taken as is;
// a directory is walked for .yaml and .yml files, skipping golden/.
func findScenarioFiles(path string, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	return files, err
}

// runScenario executes one scenario file, comparing or updating its golden
// trace.
func runScenario(file string, opts *TestOptions) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	sr := ScenarioResult{
		Name:       scenario.Name,
		Pass:       result.Pass,
		FinalState: result.FinalState,
		Errors:     result.Errors,
	}

	snapshot, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
		}
		return sr
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return sr
	}
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return sr
	}
	if !bytes.Equal(golden, snapshot) {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
	}
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func printScenario(cmd *cobra.Command, sr ScenarioResult) {
	w := cmd.OutOrStdout()
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s (%s)\n", sr.Name, sr.FinalState)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := f.JSON(resp); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
