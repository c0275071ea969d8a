// Command statemq validates, runs and tests StateMQ device configurations.
package main

import (
	"fmt"
	"os"

	"github.com/Abhichasma/StateMQ/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
