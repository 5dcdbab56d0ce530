// Package catalog assembles the configured agents from their worker variants.
package catalog

import (
	"fmt"
	"strconv"

	"github.com/Strob0t/A2APipeline/internal/config"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
	"github.com/Strob0t/A2APipeline/internal/worker/presentation"
	"github.com/Strob0t/A2APipeline/internal/worker/research"
	"github.com/Strob0t/A2APipeline/internal/worker/review"
	"github.com/Strob0t/A2APipeline/internal/worker/triage"
)

type entry struct {
	agent   func(worker.Worker) service.Agent
	variant func(config.Providers) string
	config  func(*config.Config) map[string]string
}

var entries = map[string]entry{
	triage.Name: {
		agent:   triage.Agent,
		variant: func(p config.Providers) string { return p.Triage },
		config:  openAIConfig,
	},
	research.Name: {
		agent:   research.Agent,
		variant: func(p config.Providers) string { return p.Research },
		config: func(cfg *config.Config) map[string]string {
			if cfg.Providers.Research == "gemini" {
				return withBreaker(cfg, map[string]string{
					"api_key":  cfg.Providers.GeminiAPIKey,
					"base_url": cfg.Providers.GeminiBaseURL,
					"model":    cfg.Providers.GeminiModel,
				})
			}
			return openAIConfig(cfg)
		},
	},
	review.Name: {
		agent:   review.Agent,
		variant: func(p config.Providers) string { return p.Review },
		config:  openAIConfig,
	},
	presentation.Name: {
		agent:   presentation.Agent,
		variant: func(p config.Providers) string { return p.Presentation },
		config: func(cfg *config.Config) map[string]string {
			return withBreaker(cfg, map[string]string{
				"api_key":       cfg.Providers.GammaAPIKey,
				"base_url":      cfg.Providers.GammaBaseURL,
				"poll_interval": cfg.Providers.GammaPollInterval.String(),
				"max_polls":     strconv.Itoa(cfg.Providers.GammaMaxPolls),
				"num_cards":     strconv.Itoa(cfg.Providers.GammaNumCards),
			})
		},
	},
}

func openAIConfig(cfg *config.Config) map[string]string {
	return withBreaker(cfg, map[string]string{
		"api_key":  cfg.Providers.OpenAIAPIKey,
		"base_url": cfg.Providers.OpenAIBaseURL,
		"model":    cfg.Providers.OpenAIModel,
	})
}

func withBreaker(cfg *config.Config, m map[string]string) map[string]string {
	m["breaker_max_failures"] = strconv.Itoa(cfg.Breaker.MaxFailures)
	m["breaker_timeout"] = cfg.Breaker.Timeout.String()
	return m
}

// Agent builds the named agent with its configured worker variant.
func Agent(name string, cfg *config.Config) (service.Agent, error) {
	e, ok := entries[name]
	if !ok {
		return service.Agent{}, fmt.Errorf("catalog: unknown agent %q", name)
	}
	variant := e.variant(cfg.Providers)
	w, err := worker.New(name, variant, e.config(cfg))
	if err != nil {
		return service.Agent{}, fmt.Errorf("catalog: %s: %w", name, err)
	}
	return e.agent(w), nil
}

// Variant returns the configured worker variant for the named agent.
func Variant(name string, cfg *config.Config) string {
	if e, ok := entries[name]; ok {
		return e.variant(cfg.Providers)
	}
	return ""
}

// Mounted builds every agent listed in cfg.Server.Mounted, in order.
func Mounted(cfg *config.Config) ([]service.Agent, error) {
	agents := make([]service.Agent, 0, len(cfg.Server.Mounted))
	for _, name := range cfg.Server.Mounted {
		a, err := Agent(name, cfg)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}
