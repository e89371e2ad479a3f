// Package report renders run results as the text returned to callers.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deixis/shellrun/internal/runner"
)

// Format renders a run result as the text returned to the caller.
// timeout is the limit the run was started with; it only appears in the
// timed-out message.
func Format(res *runner.Result, timeout time.Duration) string {
	switch res.Outcome {
	case runner.TimedOut:
		return fmt.Sprintf("Command timed out after %s seconds", FormatSeconds(timeout))
	case runner.Failed:
		return fmt.Sprintf("Error executing command: %v", res.Err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exit Code: %d\n\n", res.ExitCode)
	if res.Stdout != "" {
		fmt.Fprintf(&b, "STDOUT:\n%s\n", res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "STDERR:\n%s\n", res.Stderr)
	}
	if res.Stdout == "" && res.Stderr == "" {
		b.WriteString("No output\n")
	}
	return b.String()
}

// FormatSeconds renders d as the shortest decimal number of seconds,
// e.g. "1", "30" or "1.5".
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
