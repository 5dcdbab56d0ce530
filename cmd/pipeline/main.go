// Command pipeline drives the agent pipeline from the command line and
// inspects individual agents.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Strob0t/A2APipeline/internal/adapter/httpagent"
	"github.com/Strob0t/A2APipeline/internal/adapter/ristretto"
	"github.com/Strob0t/A2APipeline/internal/config"
	"github.com/Strob0t/A2APipeline/internal/logger"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by all subcommands.
type app struct {
	flags  config.CLIFlags
	asJSON bool

	cfg     *config.Config
	closeFn func()
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run and inspect the triage, research, review and presentation pipeline",
		Long: `pipeline submits a prompt to the triage agent and follows the route it
selects: research, review and presentation for medical prompts, straight to
presentation for ready-made slide content.

Agent URLs come from the config file or TRIAGE_URL, RESEARCH_URL,
REVIEW_URL and PRESENTATION_URL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.closeFn != nil {
				a.closeFn()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&a.flags.ConfigFile, "config", "c", "", "YAML config file (default "+config.DefaultConfigFile+")")
	cmd.PersistentFlags().StringVar(&a.flags.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print JSON even on a terminal")

	cmd.AddCommand(
		a.runCmd(),
		a.cardCmd(),
		a.watchCmd(),
		a.resubscribeCmd(),
		a.eventsCmd(),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.LoadWithCLI(config.DefaultConfigFile, &a.flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	// Logs go to stderr so stdout stays parseable.
	log, closer := logger.NewWithWriter(os.Stderr, cfg.Logging)
	slog.SetDefault(log)
	a.closeFn = closer.Close
	return nil
}

// client returns an HTTP client for the named agent with its own breaker.
func (a *app) client(name string) (*httpagent.Client, error) {
	url := a.cfg.Agents.URL(name)
	if url == "" {
		return nil, fmt.Errorf("unknown agent %q (want one of %v)", name, config.KnownAgents)
	}
	c := httpagent.NewClient(name, url, httpagent.Options{
		RequestTimeout:     a.cfg.Agents.RequestTimeout,
		ResubscribeTimeout: a.cfg.Agents.ResubscribeTimeout,
	})
	c.SetBreaker(resilience.NewBreaker("agent-"+name, a.cfg.Breaker.MaxFailures, a.cfg.Breaker.Timeout))
	return c, nil
}

// clients returns one client per known agent sharing a card cache. The
// returned func releases the cache.
func (a *app) clients() (map[string]*httpagent.Client, func(), error) {
	cards, err := ristretto.NewMB(a.cfg.Agents.CardCacheMB)
	if err != nil {
		return nil, nil, fmt.Errorf("card cache: %w", err)
	}
	out := make(map[string]*httpagent.Client, len(config.KnownAgents))
	for _, name := range config.KnownAgents {
		c, err := a.client(name)
		if err != nil {
			cards.Close()
			return nil, nil, err
		}
		c.SetCardCache(cards, a.cfg.Agents.CardTTL)
		out[name] = c
	}
	return out, cards.Close, nil
}
