package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/codemod/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a codemod_run result"`
	Stream string `json:"stream,omitempty" jsonschema:"stdout or stderr to show a single stream; both when empty"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	switch params.Stream {
	case "", "stdout", "stderr":
	default:
		return errorResult(fmt.Sprintf("stream must be stdout or stderr, got %q", params.Stream))
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	return textResult(formatInspectOutput(rec, params.Stream))
}

func formatInspectOutput(rec *report.Record, stream string) string {
	var b strings.Builder
	fmt.Fprint(&b, rec.Summary())

	if len(rec.Files) > 0 && stream == "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Files:")
		for _, f := range rec.Files {
			fmt.Fprintf(&b, "    %s\n", f)
		}
	}

	for _, s := range []struct{ name, text string }{
		{"stdout", rec.Stdout},
		{"stderr", rec.Stderr},
	} {
		if stream != "" && stream != s.name {
			continue
		}
		fmt.Fprintln(&b)
		if s.text == "" {
			fmt.Fprintf(&b, "%s: (empty)\n", s.name)
			continue
		}
		fmt.Fprintf(&b, "%s:\n", s.name)
		for _, line := range strings.Split(strings.TrimRight(s.text, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	return b.String()
}
