// Command a2a-server hosts the pipeline agents behind one HTTP listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cfhttp "github.com/Strob0t/A2APipeline/internal/adapter/http"
	"github.com/Strob0t/A2APipeline/internal/adapter/memstore"
	cfnats "github.com/Strob0t/A2APipeline/internal/adapter/nats"
	cfotel "github.com/Strob0t/A2APipeline/internal/adapter/otel"
	"github.com/Strob0t/A2APipeline/internal/adapter/ws"
	"github.com/Strob0t/A2APipeline/internal/config"
	"github.com/Strob0t/A2APipeline/internal/logger"
	"github.com/Strob0t/A2APipeline/internal/middleware"
	"github.com/Strob0t/A2APipeline/internal/port/a2a"
	"github.com/Strob0t/A2APipeline/internal/port/broadcast"
	"github.com/Strob0t/A2APipeline/internal/service"
	"github.com/Strob0t/A2APipeline/internal/worker/catalog"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags config.CLIFlags

	cmd := &cobra.Command{
		Use:   "a2a-server",
		Short: "Serve the triage, research, review and presentation agents",
		Long: `a2a-server mounts every configured agent under /<agent> on one listener.

Each agent accepts POST /message, streams progress on GET /message/stream
and answers POST /tasks/resubscribe. Agent cards are served at
/<agent>/.well-known/agent-card.json.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), &flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigFile, "config", "c", "", "YAML config file (default "+config.DefaultConfigFile+")")
	cmd.Flags().StringVarP(&flags.Port, "port", "p", "", "Listen port")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.StreamMode, "stream-mode", "", "Progress stream mode (live, scripted)")
	cmd.Flags().StringSliceVar(&flags.Agents, "agents", nil, "Agents to mount (default all)")

	return cmd
}

func run(ctx context.Context, flags *config.CLIFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadWithCLI(config.DefaultConfigFile, flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"stream_mode", cfg.Stream.Mode,
		"agents", cfg.Server.Mounted,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	tel, err := cfotel.Setup(ctx, cfotel.Config{
		ServiceName: cfg.OTEL.ServiceName,
		Endpoint:    cfg.OTEL.Endpoint,
		Insecure:    cfg.OTEL.Insecure,
		Prometheus:  cfg.OTEL.Prometheus,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Event fan-out ---

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	events := broadcast.Fanout{hub}

	if cfg.NATS.URL != "" {
		bus, err := cfnats.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = bus.Close() }()
		events = append(events, bus)
	}

	// --- Agents ---

	agents, err := catalog.Mounted(cfg)
	if err != nil {
		return fmt.Errorf("agents: %w", err)
	}

	opts := service.ExecutorOptions{
		WorkerTimeout: cfg.Executor.WorkerTimeout,
		Stream: service.StreamOptions{
			Mode:         service.StreamMode(cfg.Stream.Mode),
			PollInterval: cfg.Stream.PollInterval,
			MaxPolls:     cfg.Stream.MaxPolls,
		},
	}

	mounts := make([]cfhttp.Mount, 0, len(agents))
	for _, agent := range agents {
		store, err := memstore.New(cfg.Store.MaxTasks)
		if err != nil {
			return fmt.Errorf("%s store: %w", agent.Name, err)
		}
		exec := service.NewExecutor(agent, store, service.NewProgressLog(cfg.Store.MaxTasks), events, opts)
		exec.SetMetrics(metrics)

		card, err := a2a.LoadAgentCard(cfg.Server.CardsDir, agent.Name, cfg.Agents.URL(agent.Name))
		if err != nil {
			return fmt.Errorf("%s card: %w", agent.Name, err)
		}

		mounts = append(mounts, cfhttp.Mount{Exec: exec, Card: a2a.NewHandler(card)})
		slog.Info("agent mounted", "agent", agent.Name, "variant", catalog.Variant(agent.Name, cfg))
	}

	// --- HTTP ---

	r := cfhttp.NewRouter(cfhttp.HostConfig{
		CORSOrigin:     cfg.Server.CORSOrigin,
		ServiceName:    cfg.OTEL.ServiceName,
		Agents:         mounts,
		RequestTimeout: cfg.Agents.RequestTimeout,
		RateLimit:      middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
		Metrics:        tel.MetricsHandler,
		WS:             hub,
	})

	// No WriteTimeout: progress streams stay open for up to max_polls intervals.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
