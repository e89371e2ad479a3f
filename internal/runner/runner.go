// Package runner executes shell command strings with a timeout, output
// size limits and guaranteed cleanup of the child process.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"
)

// Default values used when the corresponding Runner field is zero.
const (
	DefaultMaxOutput = 1 << 20 // 1 MB per stream
	DefaultWaitDelay = 2 * time.Second
)

var (
	// ErrEmptyCommand is reported for an empty command string.
	ErrEmptyCommand = errors.New("empty command")
	// ErrInvalidTimeout is reported for a zero or negative timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// Runner executes command strings through the host shell. A Runner holds no
// per-call state and is safe for concurrent use.
type Runner struct {
	// Shell overrides the interpreter argv prefix; the command string is
	// appended as the final argument. Empty means /bin/sh -c on Unix and
	// %ComSpec% /c on Windows.
	Shell []string

	// MaxOutput caps the bytes kept per stream.
	MaxOutput int

	// WaitDelay bounds how long output is drained after the process has
	// exited, for descendants that outlive it while holding the pipes.
	WaitDelay time.Duration

	Logger zerolog.Logger
}

// Run executes command through the shell and waits for it to exit, for the
// timeout to elapse, or for ctx to be cancelled, whichever comes first. On
// timeout or cancellation the process is killed and reaped before Run
// returns. Run never returns nil; every failure is reported in the Result.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) *Result {
	start := time.Now()
	res := &Result{RunID: uuid.New().String()}
	log := r.Logger.With().Str("run_id", res.RunID).Logger()

	defer func() {
		res.Duration = time.Since(start)
		ev := log.Info()
		if res.Outcome == Failed {
			ev = log.Warn().AnErr("error", res.Err)
		}
		ev.Stringer("outcome", res.Outcome).
			Int("exit_code", res.ExitCode).
			Dur("duration", res.Duration).
			Bool("truncated", res.Truncated).
			Msg("command finished")
	}()

	if command == "" {
		return res.fail(ErrEmptyCommand)
	}
	if timeout <= 0 {
		return res.fail(fmt.Errorf("%w, got %v", ErrInvalidTimeout, timeout))
	}

	log.Debug().Str("command", command).Dur("timeout", timeout).Msg("starting command")

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	waitDelay := r.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}

	cmd := shellCommand(r.Shell, command)
	// A nil Stdin is connected to the null device, so the child never
	// blocks on interactive input.
	cmd.Stdin = nil
	var stdout, stderr bytes.Buffer
	stdoutW := &limitWriter{buf: &stdout, limit: maxOutput}
	stderrW := &limitWriter{buf: &stderr, limit: maxOutput}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return res.fail(fmt.Errorf("starting %s: %w", cmd.Path, err))
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer.C:
		r.terminate(log, cmd, done)
		res.Outcome = TimedOut
		res.Stdout = decodeOutput(stdout.Bytes())
		res.Stderr = decodeOutput(stderr.Bytes())
		res.Truncated = stdoutW.truncated || stderrW.truncated
		return res
	case <-ctx.Done():
		r.terminate(log, cmd, done)
		return res.fail(fmt.Errorf("command cancelled: %w", ctx.Err()))
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// The shell exited but a descendant kept the pipes open; the
		// output collected so far stands.
		log.Warn().Dur("wait_delay", waitDelay).Msg("output pipes closed after wait delay")
	default:
		return res.fail(fmt.Errorf("collecting output: %w", waitErr))
	}

	res.Outcome = Exited
	res.ExitCode = exitCode(cmd.ProcessState)
	res.Stdout = decodeOutput(stdout.Bytes())
	res.Stderr = decodeOutput(stderr.Bytes())
	res.Truncated = stdoutW.truncated || stderrW.truncated
	return res
}

// terminate kills the process and blocks until Wait has reaped it.
func (r *Runner) terminate(log zerolog.Logger, cmd *exec.Cmd, done <-chan error) {
	if err := killProcess(cmd); err != nil {
		log.Error().Err(err).Int("pid", cmd.Process.Pid).Msg("killing process")
	}
	<-done
}

// decodeOutput converts raw process output to a string, replacing every
// invalid UTF-8 sequence with U+FFFD.
func decodeOutput(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf       *bytes.Buffer
	limit     int
	truncated bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.truncated = w.truncated || len(p) > 0
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		w.truncated = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
