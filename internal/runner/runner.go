// Package runner executes engine invocations as child processes, either
// streaming through the caller's terminal or capturing bounded output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/deixis/codemod/internal/invocation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxOutput caps captured output per stream.
const DefaultMaxOutput = 1 << 20 // 1 MB

// interruptGrace is how long a cancelled child gets to exit after SIGINT.
const interruptGrace = 5 * time.Second

// Runner executes invocations from Dir.
//
// When Capture is false the child inherits Stdin, Stdout and Stderr (the
// process streams when those are nil). When Capture is true its output is
// buffered up to MaxOutput bytes per stream.
type Runner struct {
	Dir       string
	Capture   bool
	MaxOutput int

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Echo receives the assembled command line before launch.
	Echo   io.Writer
	Logger *zap.Logger
}

// Run launches inv and waits for it. A non-zero exit returns both the
// Result and an *ExecutionError; a launch failure returns only the error.
func (r *Runner) Run(ctx context.Context, inv invocation.Invocation) (*Result, error) {
	if inv.Executable == "" {
		return nil, fmt.Errorf("empty executable")
	}

	runID := uuid.New().String()
	log := r.logger().With(zap.String("run_id", runID))

	if r.Echo != nil {
		fmt.Fprintf(r.Echo, "Executing command: %s\n", inv)
	}
	log.Debug("launching engine", zap.Strings("argv", inv.Argv()), zap.String("dir", r.Dir))

	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Dir = r.Dir
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = interruptGrace

	var stdout, stderr bytes.Buffer
	maxOutput := r.maxOutput()
	if r.Capture {
		cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
		cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}
	} else {
		cmd.Stdin = orReader(r.Stdin, os.Stdin)
		cmd.Stdout = orWriter(r.Stdout, os.Stdout)
		cmd.Stderr = orWriter(r.Stderr, os.Stderr)
	}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := &Result{
		RunID:     runID,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: r.Capture && (stdout.Len() >= maxOutput || stderr.Len() >= maxOutput),
		Duration:  elapsed,
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			if ctx.Err() != nil {
				log.Debug("engine interrupted", zap.Error(runErr))
				res.ExitCode = Interrupted
				return res, &ExecutionError{
					Name:     inv.Name(),
					ExitCode: Interrupted,
					Err:      runErr,
				}
			}
			log.Debug("engine failed to launch", zap.Error(runErr))
			return nil, &ExecutionError{
				Name:     inv.Name(),
				ExitCode: LaunchFailed,
				Err:      runErr,
			}
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// Killed by a signal.
			res.ExitCode = Interrupted
		}
		log.Debug("engine failed", zap.Int("exit_code", res.ExitCode), zap.Duration("elapsed", elapsed))
		return res, &ExecutionError{
			Name:     inv.Name(),
			ExitCode: res.ExitCode,
			Err:      runErr,
		}
	}

	log.Debug("engine finished", zap.Duration("elapsed", elapsed))
	return res, nil
}

func (r *Runner) maxOutput() int {
	if r.MaxOutput > 0 {
		return r.MaxOutput
	}
	return DefaultMaxOutput
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func orReader(r, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
