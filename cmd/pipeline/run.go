package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Strob0t/A2APipeline/internal/adapter/httpagent"
	"github.com/Strob0t/A2APipeline/internal/service"
)

func (a *app) runCmd() *cobra.Command {
	var skipDiscovery bool

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run the pipeline for a prompt",
		Example: `  pipeline run "Create a presentation about diabetes"
  pipeline run --json "Slide 1: Intro
Slide 2: Symptoms
Slide 3: Treatment"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd.Context(), strings.Join(args, " "), skipDiscovery)
		},
	}
	cmd.Flags().BoolVar(&skipDiscovery, "skip-discovery", false, "Do not fetch agent cards before the run")
	return cmd
}

func (a *app) runPipeline(ctx context.Context, prompt string, skipDiscovery bool) error {
	clients, release, err := a.clients()
	if err != nil {
		return err
	}
	defer release()

	if !skipDiscovery {
		all := make([]*httpagent.Client, 0, len(clients))
		for _, c := range clients {
			all = append(all, c)
		}
		cards, err := httpagent.Discover(ctx, all...)
		if err != nil {
			slog.Warn("agent discovery incomplete", "error", err)
		}
		slog.Info("agents discovered", "count", len(cards))
	}

	p := service.NewPipeline(service.PipelineClients{
		Triage:       clients["triage"],
		Research:     clients["research"],
		Review:       clients["review"],
		Presentation: clients["presentation"],
	})
	out := newPrinter(os.Stdout, a.asJSON)
	p.OnStage = out.stage

	res, err := p.Run(ctx, prompt)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return out.result(res)
}
