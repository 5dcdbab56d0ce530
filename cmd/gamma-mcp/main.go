// Command gamma-mcp serves the Gamma generation API as MCP tools over stdio,
// or over streamable HTTP with --http.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Strob0t/A2APipeline/internal/adapter/gamma"
	cfmcp "github.com/Strob0t/A2APipeline/internal/adapter/mcp"
	"github.com/Strob0t/A2APipeline/internal/config"
	"github.com/Strob0t/A2APipeline/internal/logger"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

const version = "1.0.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		flags    config.CLIFlags
		httpAddr string
		mcpKey   string
	)

	cmd := &cobra.Command{
		Use:          "gamma-mcp",
		Short:        "MCP server exposing gamma_generate, gamma_get_status and gamma_list_themes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), &flags, httpAddr, mcpKey)
		},
	}
	cmd.Flags().StringVarP(&flags.ConfigFile, "config", "c", "", "YAML config file (default "+config.DefaultConfigFile+")")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&mcpKey, "api-key", os.Getenv("GAMMA_MCP_API_KEY"), "Bearer token required on the HTTP transport")
	return cmd
}

func run(ctx context.Context, flags *config.CLIFlags, httpAddr, mcpKey string) error {
	cfg, err := config.LoadWithCLI(config.DefaultConfigFile, flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// stdout carries the MCP stdio transport; logs go to stderr.
	log, closeLog := logger.NewWithWriter(os.Stderr, cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	if cfg.Providers.GammaAPIKey == "" {
		return errors.New("GAMMA_API_KEY is required")
	}

	client := gamma.NewClient(cfg.Providers.GammaBaseURL, cfg.Providers.GammaAPIKey)
	client.SetBreaker(resilience.NewBreaker("gamma-mcp", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	srv := cfmcp.NewServer(cfmcp.ServerConfig{
		Addr:    httpAddr,
		Name:    "gamma-mcp-server",
		Version: version,
		APIKey:  mcpKey,
	}, cfmcp.ServerDeps{Gamma: client})

	if httpAddr == "" {
		return srv.ServeStdio()
	}

	if err := srv.Start(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
