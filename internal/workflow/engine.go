// Package workflow drives a codemod run from safety check to engine exit.
// It is consumed by both the CLI and the MCP server.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/deixis/codemod/internal/guard"
	"github.com/deixis/codemod/internal/invocation"
	"github.com/deixis/codemod/internal/prompt"
	"github.com/deixis/codemod/internal/runner"
	"github.com/deixis/codemod/internal/transform"
	"go.uber.org/zap"
)

// Questions asked when a choice was not given on the command line.
const (
	FilesQuestion     = "On which files or directory should the codemods be applied?"
	TransformQuestion = "Which transform would you like to apply?"
	DefaultPath       = "."
)

// ErrMissingInput is returned when a choice is missing and no prompter is set.
var ErrMissingInput = errors.New("transform and path are required")

// RepoGuard decides whether the working tree may be modified.
// Implemented by guard.Guard.
type RepoGuard interface {
	Check(force bool) guard.Decision
}

// FileResolver turns path and glob arguments into a file list.
// Implemented by fileset.Resolver.
type FileResolver interface {
	Resolve(inputs []string) ([]string, error)
}

// TransformRunner executes a built invocation.
// Implemented by runner.Runner.
type TransformRunner interface {
	Run(ctx context.Context, inv invocation.Invocation) (*runner.Result, error)
}

// Prompter asks the user for missing choices.
// Implemented by prompt.Terminal.
type Prompter interface {
	Input(ctx context.Context, question, def string) (string, error)
	Select(ctx context.Context, question string, choices []prompt.Choice) (string, error)
}

// Engine holds shared dependencies for a run.
type Engine struct {
	Catalog  *transform.Catalog
	Guard    RepoGuard
	Files    FileResolver
	Builder  *invocation.Builder
	Runner   TransformRunner
	Prompter Prompter  // nil disables interactive prompts
	Out      io.Writer // user-facing messages
	Logger   *zap.Logger
}

// Request is one run as requested by the caller.
type Request struct {
	Transform string   // empty to prompt
	Paths     []string // empty to prompt
	Flags     invocation.Flags
}

// UnsafeTreeError halts a run on a working tree that is not known to be
// clean when force is not set.
type UnsafeTreeError struct {
	Reason string
}

func (e *UnsafeTreeError) Error() string {
	return e.Reason
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) printf(format string, args ...any) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}

// ExitCode maps the error returned by Migrate to a process exit status.
// Every halting condition exits 1; engine exit codes are reported in the
// error message, not propagated.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
