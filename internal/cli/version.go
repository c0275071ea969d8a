package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Abhichasma/StateMQ/internal/ir"
)

// VersionInfo is the output of the version command.
type VersionInfo struct {
	Engine  string `json:"engine"`
	Journal string `json:"journal"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the engine and journal versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Engine: ir.EngineVersion, Journal: ir.JournalVersion}
			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
				return f.JSON(CLIResponse{Status: "ok", Data: info})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "statemq %s (journal v%s)\n", info.Engine, info.Journal)
			return nil
		},
	}
}
