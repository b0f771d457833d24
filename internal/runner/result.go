package runner

import (
	"fmt"
	"time"
)

// Sentinel exit codes for runs that never produced a real exit status.
const (
	LaunchFailed = -1 // the executable could not be started
	Interrupted  = -2 // the run was cancelled before the engine reported a status
)

// Result holds the outcome of an engine run.
type Result struct {
	RunID     string        // unique identifier for this run
	ExitCode  int           // process exit code
	Stdout    []byte        // captured stdout (capture mode only, may be truncated)
	Stderr    []byte        // captured stderr (capture mode only, may be truncated)
	Truncated bool          // true if output exceeded the size cap
	Duration  time.Duration // wall time of the child process
}

// Succeeded reports whether the engine exited with status 0.
func (r *Result) Succeeded() bool {
	return r != nil && r.ExitCode == 0
}

// ExecutionError reports an engine that failed to start or exited non-zero.
type ExecutionError struct {
	Name     string // engine name, e.g. jscodeshift
	ExitCode int
	Err      error
}

func (e *ExecutionError) Error() string {
	switch e.ExitCode {
	case LaunchFailed:
		return fmt.Sprintf("%s could not be started: %v", e.Name, e.Err)
	case Interrupted:
		return fmt.Sprintf("%s was interrupted: %v", e.Name, e.Err)
	default:
		return fmt.Sprintf("%s exited with code %d", e.Name, e.ExitCode)
	}
}

func (e *ExecutionError) Unwrap() error { return e.Err }
