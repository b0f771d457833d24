// Package mcp provides the codemod MCP server, registering its tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/codemod"
	"github.com/deixis/codemod/internal/config"
	"github.com/deixis/codemod/internal/fileset"
	"github.com/deixis/codemod/internal/guard"
	"github.com/deixis/codemod/internal/invocation"
	"github.com/deixis/codemod/internal/report"
	"github.com/deixis/codemod/internal/runner"
	"github.com/deixis/codemod/internal/transform"
	"github.com/deixis/codemod/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex // guards cfg and workspace, which roots may replace
	cfg       *config.Config
	workspace string

	catalog *transform.Catalog
	store   report.Store
	logger  *zap.Logger
}

// NewServer creates an MCP server with all codemod tools registered.
// Runs execute from workspace until the client reports a root.
func NewServer(cfg *config.Config, store report.Store, workspace string, opts ...ServerOption) *mcp.Server {
	so := serverOptions{
		catalog: transform.Builtin(),
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(&so)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	h := &handler{
		cfg:       cfg,
		workspace: workspace,
		catalog:   so.catalog,
		store:     store,
		logger:    so.logger,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "codemod", Version: codemod.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "codemod_transforms",
		Description: "List the transforms codemod can apply, with their IDs and descriptions.",
	}, h.transformsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "codemod_run",
		Description: `Apply a transform to files in the workspace.

Paths are files, directories or glob patterns relative to the workspace root.
Refuses to run on a git working tree with uncommitted changes unless force=true;
dry=true previews without writing and skips that check. Output is stored for
drill-down via codemod_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "codemod_inspect",
		Description: "Show the full engine output of an earlier codemod_run by run ID.",
	}, h.inspectHandler)

	return s
}

// ServerOption configures the codemod MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	catalog *transform.Catalog
	logger  *zap.Logger
}

// WithLogger sets the logger used by the server and the runs it starts.
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCatalog replaces the builtin transform catalog.
func WithCatalog(c *transform.Catalog) ServerOption {
	return func(o *serverOptions) {
		if c != nil {
			o.catalog = c
		}
	}
}

// newEngine assembles a non-interactive engine for the current workspace.
// User-facing messages go to out.
func (h *handler) newEngine(out io.Writer) *workflow.Engine {
	h.mu.Lock()
	cfg, workspace := h.cfg, h.workspace
	h.mu.Unlock()

	return &workflow.Engine{
		Catalog: h.catalog,
		Guard:   guard.New(workspace, h.logger),
		Files:   &fileset.Resolver{Dir: workspace},
		Builder: &invocation.Builder{
			Executable:     invocation.LocateEngine(cfg.Engine.Executable, workspace),
			TransformDir:   cfg.Transforms.Dir,
			Verbose:        cfg.Engine.Verbose,
			IgnorePatterns: cfg.Engine.IgnorePatterns,
			Extensions:     cfg.Engine.Extensions,
		},
		Runner: &runner.Runner{
			Dir:       workspace,
			Capture:   true,
			MaxOutput: cfg.Runner.MaxOutput,
			Echo:      out,
			Logger:    h.logger,
		},
		Out:    out,
		Logger: h.logger,
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and switches
// the workspace and config to the first file root.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		h.logger.Debug("listing roots", zap.Error(err))
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		h.logger.Warn("ignoring root with invalid config", zap.String("root", workspace), zap.Error(err))
		return
	}

	h.mu.Lock()
	h.cfg = loaded.Config
	h.workspace = workspace
	h.mu.Unlock()
	h.logger.Info("workspace set from roots", zap.String("workspace", workspace))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
