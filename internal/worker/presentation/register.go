package presentation

import (
	"time"

	"github.com/Strob0t/A2APipeline/internal/adapter/gamma"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

// DefaultNumCards is the deck length when none is configured.
const DefaultNumCards = 8

func init() {
	worker.Register(Name, "mock", func(_ map[string]string) (worker.Worker, error) {
		return Mock{}, nil
	})
	worker.Register(Name, "gamma", func(cfg map[string]string) (worker.Worker, error) {
		c := gamma.NewClient(cfg["base_url"], cfg["api_key"])
		c.SetBreaker(resilience.NewBreaker("gamma-presentation",
			worker.ConfigInt(cfg, "breaker_max_failures", 5),
			worker.ConfigDuration(cfg, "breaker_timeout", 30*time.Second)))
		c.SetPolling(
			worker.ConfigDuration(cfg, "poll_interval", gamma.DefaultPollInterval),
			worker.ConfigInt(cfg, "max_polls", gamma.DefaultMaxPolls))
		return NewGamma(c, worker.ConfigInt(cfg, "num_cards", DefaultNumCards)), nil
	})
}
