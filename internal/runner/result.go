package runner

import "time"

// Outcome identifies how a run completed. Every Result carries exactly one.
type Outcome int

const (
	// Exited means the process ran to completion; ExitCode is valid.
	Exited Outcome = iota
	// TimedOut means the timeout elapsed first and the process was killed.
	TimedOut
	// Failed means the process could not be started or its output could
	// not be collected; Err describes why.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Exited:
		return "exited"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result holds the outcome of a single command execution.
type Result struct {
	RunID     string        // unique identifier for this run, used in logs
	Outcome   Outcome       // completion mode
	ExitCode  int           // process exit code; only meaningful when Outcome is Exited
	Stdout    string        // captured stdout, UTF-8 with invalid bytes replaced
	Stderr    string        // captured stderr, UTF-8 with invalid bytes replaced
	Err       error         // spawn or I/O failure; only set when Outcome is Failed
	Truncated bool          // true if either stream exceeded the size cap
	Duration  time.Duration // wall time from start to reap
}

func (r *Result) fail(err error) *Result {
	r.Outcome = Failed
	r.Err = err
	r.ExitCode = 0
	r.Stdout = ""
	r.Stderr = ""
	return r
}
