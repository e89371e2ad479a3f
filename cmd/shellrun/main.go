// Command shellrun serves host shell command execution as an MCP tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd().Execute()

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "shellrun: %v\n", err)
		os.Exit(1)
	}
}

// exitError carries a process exit status out of a command without
// printing anything further.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shellrun",
		Short: "Run shell commands on behalf of MCP clients",
		Long: `shellrun exposes the host shell as a single MCP tool, execute_terminal_command.

Each call runs one command through the shell with empty stdin, waits for it to
exit or for the timeout to elapse, and returns the exit code and output as text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a config file (default: search for .shellrun.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(newServeCmd(a), newExecCmd(a), newVersionCmd())
	return root
}
