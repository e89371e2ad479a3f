//go:build windows

package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// shellCommand builds the interpreter invocation for command. With the
// default shell the command line is handed to cmd.exe verbatim, since cmd.exe
// does not follow the argv quoting rules exec applies.
func shellCommand(shell []string, command string) *exec.Cmd {
	if len(shell) > 0 {
		argv := append(append([]string{}, shell[1:]...), command)
		return exec.Command(shell[0], argv...)
	}

	comspec := os.Getenv("ComSpec")
	if comspec == "" {
		comspec = "cmd.exe"
	}
	cmd := exec.Command(comspec)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: fmt.Sprintf(`%s /c "%s"`, syscall.EscapeArg(comspec), command),
	}
	return cmd
}

func killProcess(cmd *exec.Cmd) error {
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func exitCode(ps *os.ProcessState) int {
	return ps.ExitCode()
}
