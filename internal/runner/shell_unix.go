//go:build unix

package runner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

var defaultShell = []string{"/bin/sh", "-c"}

// shellCommand builds the interpreter invocation for command. The child gets
// its own process group so killProcess reaches everything the shell spawned.
func shellCommand(shell []string, command string) *exec.Cmd {
	if len(shell) == 0 {
		shell = defaultShell
	}
	argv := append(append([]string{}, shell[1:]...), command)
	cmd := exec.Command(shell[0], argv...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// killProcess sends SIGKILL to the child's process group, falling back to
// the child alone if the group is already gone.
func killProcess(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// exitCode reports the exit status, using -signal for a child terminated
// by a signal.
func exitCode(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}
