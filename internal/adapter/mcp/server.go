// Package mcp exposes the Gamma generation API as Model Context Protocol
// tools, served over stdio or streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/A2APipeline/internal/adapter/gamma"
)

// GammaAPI is the part of the Gamma client the tools call.
type GammaAPI interface {
	Generate(ctx context.Context, req gamma.GenerateRequest) (gamma.Generation, error)
	Status(ctx context.Context, generationID string) (gamma.Generation, error)
	Themes(ctx context.Context) (json.RawMessage, error)
}

// ServerConfig holds MCP server identity and transport settings.
type ServerConfig struct {
	Addr    string // streamable HTTP listen address; Start is a no-op when empty
	Name    string
	Version string
	APIKey  string // required bearer token on the HTTP transport when set
}

// ServerDeps are the backends the tools call.
type ServerDeps struct {
	Gamma GammaAPI
}

// Server wraps an mcp-go server with the Gamma tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *http.Server
}

// NewServer creates the MCP server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if cfg.Name == "" {
		cfg.Name = "gamma-mcp-server"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// ServeStdio serves the tools on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	slog.Info("mcp server serving stdio", "name", s.cfg.Name)
	return mcpserver.ServeStdio(s.mcpServer)
}

// Handler returns the streamable HTTP transport behind the API key check.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer))
}

// Start listens on cfg.Addr and serves the HTTP transport in the background.
func (s *Server) Start() error {
	if s.cfg.Addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen %s: %w", s.cfg.Addr, err)
	}
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()
	slog.Info("mcp server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the HTTP transport down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	slog.Info("mcp server stopping")
	return s.httpSrv.Shutdown(ctx)
}
