package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/deixis/shellrun/internal/report"
	"github.com/deixis/shellrun/internal/runner"
	"github.com/spf13/cobra"
)

// Exit statuses of the exec subcommand for outcomes without a command exit code.
const (
	exitTimedOut = 124 // same as timeout(1)
	exitFailed   = 1
)

func newExecCmd(a *app) *cobra.Command {
	var timeoutSecs float64

	cmd := &cobra.Command{
		Use:   "exec [flags] -- COMMAND...",
		Short: "Run one command the way the MCP tool does and print its report",
		Long: `Run one command through the same runner the MCP tool uses and print the
formatted report. Arguments are joined with spaces into a single shell command.

The process exits with the command's exit code, 124 if it timed out, or 1 if it
could not be run.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout := a.cfg.Timeout()
			if cmd.Flags().Changed("timeout") {
				if timeoutSecs <= 0 {
					return fmt.Errorf("--timeout must be positive, got %v", timeoutSecs)
				}
				timeout = time.Duration(math.Round(timeoutSecs * float64(time.Second)))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := a.newRunner().Run(ctx, strings.Join(args, " "), timeout)

			text := report.Format(res, timeout)
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			fmt.Fprint(cmd.OutOrStdout(), text)

			switch res.Outcome {
			case runner.TimedOut:
				return &exitError{code: exitTimedOut}
			case runner.Failed:
				return &exitError{code: exitFailed}
			}
			if code := res.ExitCode; code != 0 {
				if code < 0 {
					// Killed by signal -code; report it the way shells do.
					code = 128 - code
				}
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&timeoutSecs, "timeout", 0, "timeout in seconds (default from config, 30)")
	return cmd
}
