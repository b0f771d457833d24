package main

import (
	"context"
	"fmt"
	"net/http"

	cmmcp "github.com/deixis/codemod/internal/mcp"
	"github.com/deixis/codemod/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runCacheSize is how many run records the MCP server keeps in memory.
const runCacheSize = 5

func (a *app) mcpCmd() *cobra.Command {
	var (
		httpAddr     string
		instructions bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start an MCP server exposing codemod_transforms, codemod_run and codemod_inspect.

The server speaks over stdio unless --http is given.

Examples:
  # Serve over stdio
  codemod mcp

  # Serve streamable HTTP
  codemod mcp --http :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(a.stdout, cmmcp.Instructions)
				return nil
			}
			return a.serve(cmd.Context(), httpAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

func (a *app) serve(ctx context.Context, httpAddr string) error {
	env, err := a.loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	store := report.NewLRUStore(runCacheSize, report.NewDiskStore(""))
	server := cmmcp.NewServer(env.cfg, store, env.workspace, cmmcp.WithLogger(env.logger))

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr, env.logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
