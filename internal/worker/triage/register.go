package triage

import (
	"time"

	"github.com/Strob0t/A2APipeline/internal/adapter/openai"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

func init() {
	worker.Register(Name, "rules", func(_ map[string]string) (worker.Worker, error) {
		return Rules{}, nil
	})
	worker.Register(Name, "openai", func(cfg map[string]string) (worker.Worker, error) {
		c := openai.NewClient(cfg["api_key"], cfg["base_url"], cfg["model"])
		c.SetBreaker(resilience.NewBreaker("openai-triage",
			worker.ConfigInt(cfg, "breaker_max_failures", 5),
			worker.ConfigDuration(cfg, "breaker_timeout", 30*time.Second)))
		return NewLLM(c), nil
	})
}
