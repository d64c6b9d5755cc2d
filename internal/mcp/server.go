// Package mcp exposes the tools of a registry over the Model Context
// Protocol, on stdio or streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"toolbridge/internal/metrics"
	"toolbridge/internal/tool"
)

const (
	// EndpointPath is where the streamable HTTP transport is mounted.
	EndpointPath = "/mcp"
	// MetricsPath serves Prometheus metrics in HTTP mode.
	MetricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Transport selects how the server talks to its client.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Server wraps an MCP server whose tools are backed by a tool.Registry.
type Server struct {
	mcp      *mcpsrv.MCPServer
	registry *tool.Registry
	metrics  *metrics.Collector
	logger   *slog.Logger
}

type Config struct {
	Name         string
	Version      string
	Instructions string
	Registry     *tool.Registry
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}

// New creates a server exposing every tool currently in cfg.Registry.
// Tools registered afterwards are not visible.
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("mcp: registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewCollector("toolbridge")
	}
	s := &Server{
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}

	opts := []mcpsrv.ServerOption{
		mcpsrv.WithToolCapabilities(false),
		mcpsrv.WithRecovery(),
	}
	if cfg.Instructions != "" {
		opts = append(opts, mcpsrv.WithInstructions(cfg.Instructions))
	}
	s.mcp = mcpsrv.NewMCPServer(cfg.Name, cfg.Version, opts...)

	for _, def := range cfg.Registry.GetDefinitions() {
		schema, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("mcp: schema for %s: %w", def.Name, err)
		}
		s.mcp.AddTool(mcplib.NewToolWithRawSchema(def.Name, def.Description, schema), s.handler(def.Name))
	}
	return s, nil
}

// handler adapts a registry tool to an MCP tool handler. Tool errors are
// returned to the client as error results, never as protocol errors.
func (s *Server) handler(name string) mcpsrv.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		start := time.Now()
		out, err := s.registry.Execute(ctx, name, req.GetArguments())
		elapsed := time.Since(start)
		if err != nil {
			s.metrics.ObserveToolCall(name, metrics.OutcomeError, elapsed)
			s.logger.WarnContext(ctx, "tool call failed", "tool", name, "error", err, "elapsed", elapsed)
			return resultErr(err), nil
		}
		s.metrics.ObserveToolCall(name, metrics.OutcomeOK, elapsed)
		s.logger.DebugContext(ctx, "tool call", "tool", name, "elapsed", elapsed)
		return resultText(out), nil
	}
}

// Serve runs the server on the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport Transport, addr string) error {
	switch transport {
	case TransportStdio, "":
		return s.ServeStdio(ctx)
	case TransportHTTP:
		return s.ServeHTTP(ctx, addr)
	default:
		return fmt.Errorf("mcp: unknown transport %q", transport)
	}
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled
// or the client closes stdin.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler serving the MCP endpoint and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, mcpsrv.NewStreamableHTTPServer(s.mcp))
	mux.Handle(MetricsPath, s.metrics.Handler())
	return mux
}

// ServeHTTP runs the MCP server as a streamable HTTP server on addr until
// ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr, "endpoint", EndpointPath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "mcp server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func resultText(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}

func resultErr(err error) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(err.Error())},
		IsError: true,
	}
}
