// Package report keeps the records of engine runs started through the MCP
// server so their captured output can be inspected later.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/codemod/internal/runner"
	"github.com/deixis/codemod/internal/workflow"
	"github.com/google/uuid"
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *Record) error
	Load(runID string) (*Record, error)
}

// Record is the stored outcome of one run.
type Record struct {
	ID        string        `json:"id"`
	Transform string        `json:"transform"`
	State     string        `json:"state"`
	Inputs    []string      `json:"inputs,omitempty"`
	Files     []string      `json:"files,omitempty"`
	Command   string        `json:"command,omitempty"`
	ExitCode  int           `json:"exit_code"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
	Stdout    string        `json:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NewRecord builds a record from a Migrate outcome and error. Runs that
// never reached the engine get a fresh ID.
func NewRecord(out *workflow.Outcome, runErr error, startedAt time.Time) *Record {
	rec := &Record{
		ID:        uuid.New().String(),
		Transform: out.Transform.ID,
		State:     out.State.String(),
		Inputs:    out.Inputs,
		Files:     out.Files,
		Succeeded: runErr == nil && out.Succeeded(),
		StartedAt: startedAt,
	}
	if out.Invocation != nil {
		rec.Command = out.Invocation.String()
	}
	if runErr != nil {
		rec.Error = runErr.Error()
		rec.ExitCode = workflow.ExitCode(runErr)
	}
	if res := out.Result; res != nil {
		rec.ID = res.RunID
		rec.ExitCode = res.ExitCode
		rec.Stdout = string(res.Stdout)
		rec.Stderr = string(res.Stderr)
		rec.Truncated = res.Truncated
		rec.Duration = res.Duration
	}
	if runErr != nil && out.Result == nil {
		if code, ok := launchCode(runErr); ok {
			rec.ExitCode = code
		}
	}
	return rec
}

// Summary is a short multi-line description of the run.
func (r *Record) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", r.ID)
	if r.Transform != "" {
		fmt.Fprintf(&b, "Transform: %s\n", r.Transform)
	}
	if r.Command != "" {
		fmt.Fprintf(&b, "Command: %s\n", r.Command)
	}
	status := "ok"
	if !r.Succeeded {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "Status: %s (state %s, exit %d)\n", status, r.State, r.ExitCode)
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	if len(r.Files) > 0 {
		fmt.Fprintf(&b, "Files: %d\n", len(r.Files))
	}
	if r.Truncated {
		fmt.Fprintln(&b, "Output was truncated.")
	}
	return b.String()
}

func launchCode(err error) (int, bool) {
	var execErr *runner.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.ExitCode, true
	}
	return 0, false
}
