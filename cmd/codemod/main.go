// Command codemod applies source transforms to a JavaScript or TypeScript
// project by driving jscodeshift.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/deixis/codemod"
	"github.com/deixis/codemod/internal/config"
	"github.com/deixis/codemod/internal/fileset"
	"github.com/deixis/codemod/internal/guard"
	"github.com/deixis/codemod/internal/invocation"
	"github.com/deixis/codemod/internal/logging"
	"github.com/deixis/codemod/internal/prompt"
	"github.com/deixis/codemod/internal/runner"
	"github.com/deixis/codemod/internal/transform"
	"github.com/deixis/codemod/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		reportError(stdout, stderr, err)
	}
	return workflow.ExitCode(err)
}

// app carries the process streams and parsed flags shared by commands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags invocation.Flags
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codemod [transform] [path-or-glob...]",
		Short: "Apply source transforms to a JavaScript or TypeScript project",
		Long: `codemod runs a transform over files, directories or glob patterns using jscodeshift.

Missing arguments are asked for interactively. The run refuses to modify a
git working tree with uncommitted changes unless --force is given.

Examples:
  # Pick a transform and path interactively
  codemod

  # Preview the v5 transform on every TSX file under src
  codemod v5 "src/**/*.tsx" --dry

  # Pass options directly to jscodeshift
  codemod v5 src --jscodeshift=--parser=tsx`,
		Args:          cobra.ArbitraryArgs,
		Version:       codemod.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runMigrate,
	}

	f := cmd.Flags()
	f.BoolVar(&a.flags.Force, "force", false, "bypass git safety checks and forcibly run codemods")
	f.BoolVar(&a.flags.Dry, "dry", false, "dry run (no changes are made to files)")
	f.BoolVar(&a.flags.Print, "print", false, "print transformed files to your terminal")
	f.BoolVar(&a.flags.RunInBand, "run-in-band", false, "run jscodeshift in a single process")
	f.StringArrayVar(&a.flags.EngineArgs, "jscodeshift", nil, "(advanced) pass an option directly to jscodeshift; repeatable")

	cmd.AddCommand(a.listCmd(), a.mcpCmd())
	return cmd
}

func (a *app) runMigrate(cmd *cobra.Command, args []string) error {
	env, err := a.loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	var req workflow.Request
	req.Flags = a.flags
	if len(args) > 0 {
		req.Transform = args[0]
		req.Paths = args[1:]
	}

	cfg := env.cfg
	eng := &workflow.Engine{
		Catalog: transform.Builtin(),
		Guard:   guard.New(env.workspace, env.logger),
		Files:   &fileset.Resolver{},
		Builder: &invocation.Builder{
			Executable:     invocation.LocateEngine(cfg.Engine.Executable, env.workspace),
			TransformDir:   cfg.Transforms.Dir,
			Verbose:        cfg.Engine.Verbose,
			IgnorePatterns: cfg.Engine.IgnorePatterns,
			Extensions:     cfg.Engine.Extensions,
		},
		Runner: &runner.Runner{
			Stdin:  a.stdin,
			Stdout: a.stdout,
			Stderr: a.stderr,
			Echo:   a.stdout,
			Logger: env.logger,
		},
		Prompter: &prompt.Terminal{In: a.stdin, Out: a.stdout},
		Out:      a.stdout,
		Logger:   env.logger,
	}

	out, err := eng.Migrate(cmd.Context(), req)
	env.logger.Debug("run finished",
		zap.Stringer("state", out.State),
		zap.Strings("files", out.Files),
		zap.Error(err),
	)
	return err
}

// env is the per-process setup shared by every command.
type env struct {
	workspace string
	cfg       *config.Config
	logger    *zap.Logger
}

func (a *app) loadEnv() (*env, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  loaded.Config.Log.Level,
		Format: loaded.Config.Log.Format,
		Output: a.stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	if loaded.Path != "" {
		logger.Debug("config loaded", zap.String("path", loaded.Path))
	}

	return &env{workspace: workspace, cfg: loaded.Config, logger: logger}, nil
}

// reportError prints the user-facing message for an error returned by a
// command. Safety check guidance goes to stdout; everything else to stderr.
func reportError(stdout, stderr io.Writer, err error) {
	var unsafe *workflow.UnsafeTreeError
	var notFound *transform.NotFoundError
	switch {
	case errors.As(err, &unsafe):
		fmt.Fprintln(stdout, "Thank you for using codemod!")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, warnStyle.Render("But before we continue, please stash or commit your git changes."))
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "You may use the --force flag to override this safety check.")
	case errors.As(err, &notFound):
		fmt.Fprintln(stderr, "Invalid transform choice, pick one of:")
		for _, id := range notFound.Valid {
			fmt.Fprintf(stderr, "- %s\n", id)
		}
	case errors.Is(err, prompt.ErrAborted):
		fmt.Fprintln(stderr, "Aborted.")
	default:
		fmt.Fprintf(stderr, "codemod: %v\n", err)
	}
}
