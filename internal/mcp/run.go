package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/codemod/internal/invocation"
	"github.com/deixis/codemod/internal/report"
	"github.com/deixis/codemod/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// tailLines is how much engine output codemod_run shows inline.
const tailLines = 20

type runParams struct {
	Transform  string   `json:"transform" jsonschema:"transform ID as listed by codemod_transforms (e.g. v5)"`
	Paths      []string `json:"paths" jsonschema:"files, directories or glob patterns relative to the workspace root (e.g. src/**/*.tsx)"`
	Dry        bool     `json:"dry,omitempty" jsonschema:"preview changes without writing files; skips the git safety check"`
	Print      bool     `json:"print,omitempty" jsonschema:"print transformed sources in the output"`
	RunInBand  bool     `json:"run_in_band,omitempty" jsonschema:"run the engine in a single process"`
	Force      bool     `json:"force,omitempty" jsonschema:"run even if the git working tree has uncommitted changes"`
	EngineArgs []string `json:"engine_args,omitempty" jsonschema:"extra arguments passed verbatim to jscodeshift"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.Transform == "" {
		return errorResult("transform is required")
	}
	if len(params.Paths) == 0 {
		return errorResult("paths is required")
	}

	var msgs strings.Builder
	eng := h.newEngine(&msgs)

	started := time.Now()
	out, err := eng.Migrate(ctx, workflow.Request{
		Transform: params.Transform,
		Paths:     params.Paths,
		Flags: invocation.Flags{
			Force:      params.Force,
			Dry:        params.Dry,
			Print:      params.Print,
			RunInBand:  params.RunInBand,
			EngineArgs: params.EngineArgs,
		},
	})

	rec := report.NewRecord(out, err, started)
	// Save results for codemod_inspect.
	if saveErr := h.store.Save(rec); saveErr != nil {
		h.logger.Warn("saving run record", zap.String("run_id", rec.ID), zap.Error(saveErr))
	}

	text := formatRun(rec, msgs.String(), err)
	if err != nil {
		return errorResult(text)
	}
	return textResult(text)
}

func formatRun(rec *report.Record, messages string, err error) string {
	var b strings.Builder
	fmt.Fprint(&b, rec.Summary())

	if messages != "" {
		fmt.Fprintln(&b)
		fmt.Fprint(&b, messages)
	}

	var unsafe *workflow.UnsafeTreeError
	if errors.As(err, &unsafe) {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Stash or commit the git changes first, or retry with force=true.")
	}

	if rec.Stdout != "" || rec.Stderr != "" {
		for _, s := range []struct{ name, text string }{
			{"stdout", rec.Stdout},
			{"stderr", rec.Stderr},
		} {
			lines, total := tail(s.text, tailLines)
			if total == 0 {
				continue
			}
			fmt.Fprintln(&b)
			if total > len(lines) {
				fmt.Fprintf(&b, "%s (last %d of %d lines):\n", s.name, len(lines), total)
			} else {
				fmt.Fprintf(&b, "%s:\n", s.name)
			}
			for _, line := range lines {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Inspect with codemod_inspect(run_id=%q).\n", rec.ID)
	}

	return b.String()
}

// tail returns the last n lines of s and the total line count.
func tail(s string, n int) ([]string, int) {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil, 0
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return lines, len(lines)
	}
	return lines[len(lines)-n:], len(lines)
}
