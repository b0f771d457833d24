package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type transformsParams struct{}

func (h *handler) transformsHandler(ctx context.Context, req *mcp.CallToolRequest, _ transformsParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	dir, workspace := h.cfg.Transforms.Dir, h.workspace
	h.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Workspace: %s\n", workspace)
	fmt.Fprintf(&b, "Transforms (%d):\n", h.catalog.Len())
	for _, d := range h.catalog.All() {
		fmt.Fprintf(&b, "  %s: %s", d.ID, d.DisplayName)
		if _, err := os.Stat(d.ScriptPath(dir)); err != nil {
			fmt.Fprint(&b, " (script missing)")
		}
		fmt.Fprintln(&b)
	}
	return textResult(b.String())
}
