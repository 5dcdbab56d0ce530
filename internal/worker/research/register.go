package research

import (
	"context"
	"time"

	"github.com/Strob0t/A2APipeline/internal/adapter/gemini"
	"github.com/Strob0t/A2APipeline/internal/adapter/openai"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

const systemPrompt = "You are a medical research assistant. Always answer with a single JSON object."

// chat adapts a chat completion client to Generator.
type chat struct {
	c *openai.Client
}

func (g chat) Generate(ctx context.Context, prompt string) (string, error) {
	return g.c.Complete(ctx, systemPrompt, prompt, true)
}

func breaker(name string, cfg map[string]string) *resilience.Breaker {
	return resilience.NewBreaker(name,
		worker.ConfigInt(cfg, "breaker_max_failures", 5),
		worker.ConfigDuration(cfg, "breaker_timeout", 30*time.Second))
}

func init() {
	worker.Register(Name, "mock", func(_ map[string]string) (worker.Worker, error) {
		return Mock{}, nil
	})
	worker.Register(Name, "gemini", func(cfg map[string]string) (worker.Worker, error) {
		c := gemini.NewClient(cfg["base_url"], cfg["api_key"], cfg["model"])
		c.SetBreaker(breaker("gemini-research", cfg))
		return NewModel(c, "gemini"), nil
	})
	worker.Register(Name, "openai", func(cfg map[string]string) (worker.Worker, error) {
		c := openai.NewClient(cfg["api_key"], cfg["base_url"], cfg["model"])
		c.SetBreaker(breaker("openai-research", cfg))
		return NewModel(chat{c: c}, "openai"), nil
	})
}
