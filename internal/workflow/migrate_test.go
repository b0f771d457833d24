package workflow

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/deixis/codemod/internal/fileset"
	"github.com/deixis/codemod/internal/guard"
	"github.com/deixis/codemod/internal/invocation"
	"github.com/deixis/codemod/internal/prompt"
	"github.com/deixis/codemod/internal/runner"
	"github.com/deixis/codemod/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGuard struct {
	state  guard.State
	calls  int
	forced []bool
}

func (g *fakeGuard) Check(force bool) guard.Decision {
	g.calls++
	g.forced = append(g.forced, force)
	return guard.Decide(g.state, force)
}

type fakeFiles struct {
	files  []string
	err    error
	inputs [][]string
}

func (f *fakeFiles) Resolve(inputs []string) ([]string, error) {
	f.inputs = append(f.inputs, inputs)
	if f.err != nil {
		return nil, f.err
	}
	if f.files != nil {
		return f.files, nil
	}
	return inputs, nil
}

type fakeRunner struct {
	exitCode int
	launched []invocation.Invocation
}

func (r *fakeRunner) Run(_ context.Context, inv invocation.Invocation) (*runner.Result, error) {
	r.launched = append(r.launched, inv)
	res := &runner.Result{RunID: "run-1", ExitCode: r.exitCode}
	if r.exitCode != 0 {
		return res, &runner.ExecutionError{Name: inv.Name(), ExitCode: r.exitCode}
	}
	return res, nil
}

type fakePrompter struct {
	input     string
	selection string
	err       error
	questions []string
}

func (p *fakePrompter) Input(_ context.Context, question, def string) (string, error) {
	p.questions = append(p.questions, question)
	if p.err != nil {
		return "", p.err
	}
	if p.input == "" {
		return def, nil
	}
	return p.input, nil
}

func (p *fakePrompter) Select(_ context.Context, question string, choices []prompt.Choice) (string, error) {
	p.questions = append(p.questions, question)
	if p.err != nil {
		return "", p.err
	}
	if p.selection == "" {
		return choices[0].Value, nil
	}
	return p.selection, nil
}

type fixture struct {
	engine   *Engine
	guard    *fakeGuard
	files    *fakeFiles
	runner   *fakeRunner
	prompter *fakePrompter
	out      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		guard:    &fakeGuard{state: guard.Clean},
		files:    &fakeFiles{},
		runner:   &fakeRunner{},
		prompter: &fakePrompter{},
		out:      &bytes.Buffer{},
	}
	f.engine = &Engine{
		Catalog:  transform.Builtin(),
		Guard:    f.guard,
		Files:    f.files,
		Builder:  &invocation.Builder{Executable: "jscodeshift", TransformDir: "/t"},
		Runner:   f.runner,
		Prompter: f.prompter,
		Out:      f.out,
	}
	return f
}

func TestMigrate_Success(t *testing.T) {
	f := newFixture(t)

	out, err := f.engine.Migrate(context.Background(), Request{
		Transform: "v5",
		Paths:     []string{"a.tsx", "b.tsx"},
	})
	require.NoError(t, err)
	assert.Equal(t, Done, out.State)
	assert.True(t, out.Succeeded())
	assert.Equal(t, 0, out.Result.ExitCode)
	assert.Equal(t, 0, ExitCode(err))
	assert.Equal(t, []string{"a.tsx", "b.tsx"}, out.Files)

	require.Len(t, f.runner.launched, 1)
	args := f.runner.launched[0].Args
	assert.Equal(t, []string{"--transform", filepath.Join("/t", "v5.js"), "a.tsx", "b.tsx"}, args[len(args)-4:])
	assert.Empty(t, f.prompter.questions)
}

func TestMigrate_DirtyTreeHalts(t *testing.T) {
	f := newFixture(t)
	f.guard.state = guard.Dirty

	out, err := f.engine.Migrate(context.Background(), Request{Transform: "v5", Paths: []string{"src"}})

	var unsafe *UnsafeTreeError
	require.True(t, errors.As(err, &unsafe))
	assert.Equal(t, guard.ReasonDirty, unsafe.Reason)
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, GuardingRepo, out.State)
	assert.Empty(t, f.runner.launched, "no child process may be launched")
	assert.Empty(t, f.files.inputs)
}

func TestMigrate_UnknownStateHalts(t *testing.T) {
	f := newFixture(t)
	f.guard.state = guard.Unknown

	_, err := f.engine.Migrate(context.Background(), Request{Transform: "v5", Paths: []string{"src"}})
	var unsafe *UnsafeTreeError
	require.True(t, errors.As(err, &unsafe))
	assert.Equal(t, guard.ReasonUnknown, unsafe.Reason)
	assert.Empty(t, f.runner.launched)
}

func TestMigrate_ForceWarnsAndContinues(t *testing.T) {
	f := newFixture(t)
	f.guard.state = guard.Dirty

	out, err := f.engine.Migrate(context.Background(), Request{
		Transform: "v5",
		Paths:     []string{"src"},
		Flags:     invocation.Flags{Force: true},
	})
	require.NoError(t, err)
	assert.True(t, out.Forced)
	assert.Contains(t, f.out.String(), "WARNING: Git directory is not clean. Forcibly continuing.")
	assert.Len(t, f.runner.launched, 1)
}

func TestMigrate_DryRunSkipsGuard(t *testing.T) {
	f := newFixture(t)
	f.guard.state = guard.Dirty

	out, err := f.engine.Migrate(context.Background(), Request{
		Transform: "v5",
		Paths:     []string{"src"},
		Flags:     invocation.Flags{Dry: true},
	})
	require.NoError(t, err)
	assert.Equal(t, Done, out.State)
	assert.Zero(t, f.guard.calls)
	assert.Equal(t, "--dry", f.runner.launched[0].Args[0])
}

func TestMigrate_InvalidTransform(t *testing.T) {
	f := newFixture(t)

	out, err := f.engine.Migrate(context.Background(), Request{Transform: "nonexistent"})

	var nf *transform.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"v5"}, nf.Valid)
	assert.Equal(t, ResolvingChoice, out.State)
	assert.Equal(t, 1, ExitCode(err))
	assert.Empty(t, f.prompter.questions, "transform is validated before prompting")
	assert.Empty(t, f.runner.launched)
}

func TestMigrate_EmptyFileSetIsBenign(t *testing.T) {
	f := newFixture(t)
	f.files.err = fileset.ErrNoFiles

	out, err := f.engine.Migrate(context.Background(), Request{
		Transform: "v5",
		Paths:     []string{"src/**/*.tsx"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, ExitCode(err))
	assert.Equal(t, NoFiles, out.State)
	assert.True(t, out.Succeeded())
	assert.Equal(t, "No files found matching src/**/*.tsx\n", f.out.String())
	assert.Empty(t, f.runner.launched)
}

func TestMigrate_EngineFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.exitCode = 2

	out, err := f.engine.Migrate(context.Background(), Request{Transform: "v5", Paths: []string{"a.tsx"}})

	var execErr *runner.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 2, execErr.ExitCode)
	assert.EqualError(t, err, "jscodeshift exited with code 2")
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, Running, out.State)
	assert.Equal(t, 2, out.Result.ExitCode)
	assert.False(t, out.Succeeded())
}

func TestMigrate_PromptsForMissingChoices(t *testing.T) {
	f := newFixture(t)

	out, err := f.engine.Migrate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{FilesQuestion, TransformQuestion}, f.prompter.questions)
	assert.Equal(t, []string{"."}, out.Inputs)
	assert.Equal(t, "v5", out.Transform.ID)
}

func TestMigrate_PromptsOnlyForPath(t *testing.T) {
	f := newFixture(t)
	f.prompter.input = "src/**/*.tsx"

	out, err := f.engine.Migrate(context.Background(), Request{Transform: "v5"})
	require.NoError(t, err)
	assert.Equal(t, []string{FilesQuestion}, f.prompter.questions)
	assert.Equal(t, [][]string{{"src/**/*.tsx"}}, f.files.inputs)
	assert.Equal(t, "v5", out.Transform.ID)
}

func TestMigrate_PromptedTransformIsValidated(t *testing.T) {
	f := newFixture(t)
	f.prompter.selection = "bogus"

	_, err := f.engine.Migrate(context.Background(), Request{Paths: []string{"src"}})
	assert.ErrorIs(t, err, transform.ErrNotFound)
	assert.Empty(t, f.runner.launched)
}

func TestMigrate_PromptAborted(t *testing.T) {
	f := newFixture(t)
	f.prompter.err = prompt.ErrAborted

	_, err := f.engine.Migrate(context.Background(), Request{Transform: "v5"})
	assert.ErrorIs(t, err, prompt.ErrAborted)
	assert.Empty(t, f.runner.launched)
}

func TestMigrate_NoPrompter(t *testing.T) {
	f := newFixture(t)
	f.engine.Prompter = nil

	_, err := f.engine.Migrate(context.Background(), Request{Transform: "v5"})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestMigrate_ResolveFailure(t *testing.T) {
	f := newFixture(t)
	f.files.err = errors.New("syntax error in pattern")

	out, err := f.engine.Migrate(context.Background(), Request{Transform: "v5", Paths: []string{"src/[*"}})
	assert.ErrorContains(t, err, "resolving files")
	assert.Equal(t, ResolvingFiles, out.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "guarding-repo", GuardingRepo.String())
	assert.Equal(t, "no-files", NoFiles.String())
	assert.Equal(t, "state(42)", State(42).String())
}
