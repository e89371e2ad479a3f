//go:build unix

package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		MaxOutput: 1 << 20,
		WaitDelay: time.Second,
		Logger:    zerolog.Nop(),
	}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "echo hello", 10*time.Second)
	if res.Outcome != Exited {
		t.Fatalf("Outcome = %v, want exited (err: %v)", res.Outcome, res.Err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want empty", res.Stderr)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
}

func TestRun_NonZeroExitWithStderr(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "echo boom >&2; exit 1", 10*time.Second)
	if res.Outcome != Exited {
		t.Fatalf("Outcome = %v, want exited (err: %v)", res.Outcome, res.Err)
	}
	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "boom") {
		t.Errorf("Stderr = %q, want to contain 'boom'", res.Stderr)
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		command string
		want    int
	}{
		{"true", 0},
		{"false", 1},
		{"exit 42", 42},
		{"nonexistent-binary-xyz-123", 127},
		{"kill -9 $$", -9},
	}
	r := newTestRunner(t)
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			res := r.Run(context.Background(), tt.command, 10*time.Second)
			if res.Outcome != Exited {
				t.Fatalf("Outcome = %v, want exited (err: %v)", res.Outcome, res.Err)
			}
			if res.ExitCode != tt.want {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.want)
			}
		})
	}
}

func TestRun_ShellFeatures(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "printf 'a\\nb\\nc\\n' | grep -c . && cd / && pwd", 10*time.Second)
	if res.Outcome != Exited || res.ExitCode != 0 {
		t.Fatalf("Outcome = %v, ExitCode = %d, want exited 0", res.Outcome, res.ExitCode)
	}
	if res.Stdout != "3\n/\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "3\n/\n")
	}
}

func TestRun_StdinIsEmpty(t *testing.T) {
	r := newTestRunner(t)
	start := time.Now()
	res := r.Run(context.Background(), "cat", 5*time.Second)
	if res.Outcome != Exited {
		t.Fatalf("Outcome = %v, want exited; cat must not wait for input", res.Outcome)
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cat took %v, want immediate EOF on stdin", elapsed)
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newTestRunner(t)
	start := time.Now()
	res := r.Run(context.Background(), "sleep 60", 200*time.Millisecond)
	elapsed := time.Since(start)

	if res.Outcome != TimedOut {
		t.Fatalf("Outcome = %v, want timed_out", res.Outcome)
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
	if elapsed > 3*time.Second {
		t.Errorf("Run took %v, want close to the 200ms timeout", elapsed)
	}
}

func TestRun_TimeoutKeepsPartialOutput(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "echo partial; echo oops >&2; sleep 60", 500*time.Millisecond)
	if res.Outcome != TimedOut {
		t.Fatalf("Outcome = %v, want timed_out", res.Outcome)
	}
	if !strings.Contains(res.Stdout, "partial") {
		t.Errorf("Stdout = %q, want to contain 'partial'", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("Stderr = %q, want to contain 'oops'", res.Stderr)
	}
}

func TestRun_TimeoutKillsProcessGroup(t *testing.T) {
	r := newTestRunner(t)
	// The background sleep is a grandchild; it must die with the shell.
	res := r.Run(context.Background(), "sleep 60 & echo $!; wait", 500*time.Millisecond)
	if res.Outcome != TimedOut {
		t.Fatalf("Outcome = %v, want timed_out", res.Outcome)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		t.Fatalf("parsing background pid from %q: %v", res.Stdout, err)
	}

	// The orphan is reaped by init, so allow a moment for it to vanish.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if !processAlive(pid) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("process %d still running after timeout", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	r := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res := r.Run(ctx, "sleep 60", 30*time.Second)
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", res.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Run took %v after cancellation", elapsed)
	}
}

func TestRun_InvalidUTF8(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), `printf 'ok\377\376done'`, 10*time.Second)
	if res.Outcome != Exited || res.ExitCode != 0 {
		t.Fatalf("Outcome = %v, ExitCode = %d, want exited 0", res.Outcome, res.ExitCode)
	}
	if !utf8.ValidString(res.Stdout) {
		t.Errorf("Stdout = %q is not valid UTF-8", res.Stdout)
	}
	if !strings.Contains(res.Stdout, "\uFFFD") {
		t.Errorf("Stdout = %q, want replacement character", res.Stdout)
	}
	if !strings.HasPrefix(res.Stdout, "ok") || !strings.HasSuffix(res.Stdout, "done") {
		t.Errorf("Stdout = %q, want valid text preserved around the bad bytes", res.Stdout)
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	r := newTestRunner(t)
	res := r.Run(context.Background(), "", 10*time.Second)
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, ErrEmptyCommand) {
		t.Errorf("Err = %v, want ErrEmptyCommand", res.Err)
	}
}

func TestRun_InvalidTimeout(t *testing.T) {
	r := newTestRunner(t)
	for _, timeout := range []time.Duration{0, -time.Second} {
		res := r.Run(context.Background(), "echo hello", timeout)
		if res.Outcome != Failed {
			t.Fatalf("timeout %v: Outcome = %v, want failed", timeout, res.Outcome)
		}
		if !errors.Is(res.Err, ErrInvalidTimeout) {
			t.Errorf("timeout %v: Err = %v, want ErrInvalidTimeout", timeout, res.Err)
		}
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	r := newTestRunner(t)
	r.Shell = []string{"/nonexistent/shell-xyz", "-c"}
	res := r.Run(context.Background(), "echo hello", 10*time.Second)
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "shell-xyz") {
		t.Errorf("Err = %v, want to mention the shell path", res.Err)
	}
	if res.Stdout != "" || res.Stderr != "" {
		t.Errorf("output = %q/%q, want empty", res.Stdout, res.Stderr)
	}
}

func TestRun_CustomShell(t *testing.T) {
	r := newTestRunner(t)
	r.Shell = []string{"sh", "-e", "-c"}
	res := r.Run(context.Background(), "false; echo unreachable", 10*time.Second)
	if res.Outcome != Exited {
		t.Fatalf("Outcome = %v, want exited (err: %v)", res.Outcome, res.Err)
	}
	if res.ExitCode != 1 || res.Stdout != "" {
		t.Errorf("ExitCode = %d, Stdout = %q; want 1 and empty under sh -e", res.ExitCode, res.Stdout)
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100 // very small cap

	res := r.Run(context.Background(), "head -c 200 /dev/zero | tr '\\0' a", 10*time.Second)
	if res.Outcome != Exited {
		t.Fatalf("Outcome = %v, want exited (err: %v)", res.Outcome, res.Err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) != r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want %d", len(res.Stdout), r.MaxOutput)
	}
}

func TestRun_Concurrent(t *testing.T) {
	r := newTestRunner(t)
	const n = 8

	var wg sync.WaitGroup
	results := make([]*Result, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.Run(context.Background(), "echo run-"+strconv.Itoa(i), 10*time.Second)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, res := range results {
		want := "run-" + strconv.Itoa(i) + "\n"
		if res.Stdout != want {
			t.Errorf("results[%d].Stdout = %q, want %q", i, res.Stdout, want)
		}
		if seen[res.RunID] {
			t.Errorf("duplicate RunID %s", res.RunID)
		}
		seen[res.RunID] = true
	}
}

func TestLimitWriter(t *testing.T) {
	tests := []struct {
		name      string
		writes    []string
		limit     int
		want      string
		truncated bool
	}{
		{"under limit", []string{"abc"}, 10, "abc", false},
		{"exact limit", []string{"abcde"}, 5, "abcde", false},
		{"split write", []string{"abc", "defg"}, 5, "abcde", true},
		{"after full", []string{"abcde", "f"}, 5, "abcde", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &limitWriter{buf: new(bytes.Buffer), limit: tt.limit}
			for _, s := range tt.writes {
				n, err := w.Write([]byte(s))
				if err != nil || n != len(s) {
					t.Fatalf("Write(%q) = %d, %v; want %d, nil", s, n, err, len(s))
				}
			}
			if got := w.buf.String(); got != tt.want {
				t.Errorf("buffer = %q, want %q", got, tt.want)
			}
			if w.truncated != tt.truncated {
				t.Errorf("truncated = %v, want %v", w.truncated, tt.truncated)
			}
		})
	}
}

// processAlive reports whether pid names a live process. A zombie awaiting
// its reaper counts as dead.
func processAlive(pid int) bool {
	if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
		return false
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return true
	}
	// The state field follows the parenthesised command name.
	fields := strings.Fields(string(stat[bytes.LastIndexByte(stat, ')')+1:]))
	return len(fields) == 0 || fields[0] != "Z"
}
