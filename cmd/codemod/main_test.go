package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/deixis/codemod/internal/guard"
	"github.com/deixis/codemod/internal/prompt"
	"github.com/deixis/codemod/internal/runner"
	"github.com/deixis/codemod/internal/transform"
	"github.com/deixis/codemod/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = execute(context.Background(), args, &bytes.Buffer{}, &out, &errOut)
	return code, out.String(), errOut.String()
}

// fakeEngine installs a shell script as the engine via the environment.
func fakeEngine(t *testing.T, exitCode string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	path := filepath.Join(t.TempDir(), "fake-engine")
	script := "#!/bin/sh\necho \"args: $*\"\nexit " + exitCode + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("CODEMOD_ENGINE_EXECUTABLE", path)
	t.Setenv("CODEMOD_TRANSFORMS_DIR", "/opt/codemod/transforms")
}

func TestList(t *testing.T) {
	code, stdout, _ := run(t, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "v5  v5: Remove or replace deprecated props")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := run(t, "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "dev")
}

func TestInvalidTransform(t *testing.T) {
	code, _, stderr := run(t, "v4", "src", "--dry")
	assert.Equal(t, 1, code)
	assert.Equal(t, "Invalid transform choice, pick one of:\n- v5\n", stderr)
}

func TestUnknownFlag(t *testing.T) {
	code, _, stderr := run(t, "v5", "src", "--bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown flag: --bogus")
}

func TestDryRun(t *testing.T) {
	fakeEngine(t, "0")
	file := filepath.Join(t.TempDir(), "a.tsx")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	code, stdout, stderr := run(t, "v5", file, "--dry", "--jscodeshift=--parser=tsx")
	require.Equal(t, 0, code, stderr)

	script := filepath.Join("/opt/codemod/transforms", "v5.js")
	want := "--dry --verbose=2 --ignore-pattern=**/node_modules/** --ignore-pattern=**/.next/** " +
		"--extensions=tsx,ts,jsx,js --transform " + script + " --parser=tsx " + file
	assert.Contains(t, stdout, "Executing command: fake-engine "+want+"\n")
	assert.Contains(t, stdout, "args: "+want+"\n")
}

func TestEngineFailureExitsOne(t *testing.T) {
	fakeEngine(t, "2")
	file := filepath.Join(t.TempDir(), "a.tsx")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	code, _, stderr := run(t, "v5", file, "--dry")
	assert.Equal(t, 1, code)
	assert.Equal(t, "codemod: fake-engine exited with code 2\n", stderr)
}

func TestNoFilesExitsZero(t *testing.T) {
	fakeEngine(t, "0")
	pattern := filepath.Join(t.TempDir(), "**", "*.tsx")

	code, stdout, _ := run(t, "v5", pattern, "--dry")
	assert.Equal(t, 0, code)
	assert.Equal(t, "No files found matching "+pattern+"\n", stdout)
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStdout string
		wantStderr string
	}{
		{
			name:       "unsafe tree",
			err:        &workflow.UnsafeTreeError{Reason: guard.ReasonDirty},
			wantStdout: "You may use the --force flag to override this safety check.",
		},
		{
			name:       "unknown transform",
			err:        &transform.NotFoundError{ID: "v4", Valid: []string{"v5", "v6"}},
			wantStderr: "- v5\n- v6\n",
		},
		{
			name:       "aborted",
			err:        prompt.ErrAborted,
			wantStderr: "Aborted.\n",
		},
		{
			name:       "engine",
			err:        &runner.ExecutionError{Name: "jscodeshift", ExitCode: 3},
			wantStderr: "codemod: jscodeshift exited with code 3\n",
		},
		{
			name:       "other",
			err:        errors.New("loading config: boom"),
			wantStderr: "codemod: loading config: boom\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			reportError(&stdout, &stderr, tt.err)
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
			assert.Equal(t, 1, workflow.ExitCode(tt.err))
		})
	}
}

func TestReportError_UnsafeTreeGuidance(t *testing.T) {
	var stdout, stderr bytes.Buffer
	reportError(&stdout, &stderr, &workflow.UnsafeTreeError{Reason: guard.ReasonDirty})
	assert.Contains(t, stdout.String(), "Thank you for using codemod!")
	assert.Contains(t, stdout.String(), "please stash or commit your git changes.")
	assert.Empty(t, stderr.String())
}
