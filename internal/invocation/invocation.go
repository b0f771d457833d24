// Package invocation builds the command line for the transform engine.
package invocation

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deixis/codemod/internal/transform"
)

// Defaults for the engine flags emitted on every run.
const (
	DefaultVerbose = 2
)

var (
	DefaultIgnorePatterns = []string{"**/node_modules/**", "**/.next/**"}
	DefaultExtensions     = []string{"tsx", "ts", "jsx", "js"}
)

// Flags are the user-selected run options.
type Flags struct {
	Force      bool
	Dry        bool
	Print      bool
	RunInBand  bool
	EngineArgs []string // passed to the engine verbatim
}

// Invocation is a fully assembled engine command.
type Invocation struct {
	Executable string
	Args       []string
}

// Argv returns the executable followed by its arguments.
func (inv Invocation) Argv() []string {
	argv := make([]string, 0, len(inv.Args)+1)
	argv = append(argv, inv.Executable)
	return append(argv, inv.Args...)
}

// Name is the executable's base name, used when echoing the command.
func (inv Invocation) Name() string {
	return filepath.Base(inv.Executable)
}

// String renders the command the way it is echoed before execution.
func (inv Invocation) String() string {
	return inv.Name() + " " + strings.Join(inv.Args, " ")
}

// Builder assembles invocations. Zero-valued fields fall back to the
// package defaults.
type Builder struct {
	Executable     string
	TransformDir   string
	Verbose        int
	IgnorePatterns []string
	Extensions     []string
}

// Build returns the engine invocation for running desc over files. It does
// not touch the filesystem. Positional files always trail the named flags.
func (b *Builder) Build(desc transform.Descriptor, files []string, flags Flags) Invocation {
	var args []string

	if flags.Dry {
		args = append(args, "--dry")
	}
	if flags.Print {
		args = append(args, "--print")
	}
	if flags.RunInBand {
		args = append(args, "--run-in-band")
	}

	args = append(args, "--verbose="+strconv.Itoa(b.verbose()))

	for _, p := range b.ignorePatterns() {
		args = append(args, "--ignore-pattern="+p)
	}

	args = append(args, "--extensions="+strings.Join(b.extensions(), ","))
	args = append(args, "--transform", desc.ScriptPath(b.TransformDir))
	args = append(args, flags.EngineArgs...)
	args = append(args, files...)

	return Invocation{Executable: b.Executable, Args: args}
}

func (b *Builder) verbose() int {
	if b.Verbose > 0 {
		return b.Verbose
	}
	return DefaultVerbose
}

func (b *Builder) ignorePatterns() []string {
	if len(b.IgnorePatterns) > 0 {
		return b.IgnorePatterns
	}
	return DefaultIgnorePatterns
}

func (b *Builder) extensions() []string {
	if len(b.Extensions) > 0 {
		return b.Extensions
	}
	return DefaultExtensions
}
