// Package config provides hierarchical configuration loading for the agent
// host and the pipeline CLI.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import "time"

// Config holds all runtime configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Stream    Stream    `yaml:"stream"`
	Store     Store     `yaml:"store"`
	Executor  Executor  `yaml:"executor"`
	Breaker   Breaker   `yaml:"breaker"`
	Agents    Agents    `yaml:"agents"`
	Providers Providers `yaml:"providers"`
	NATS      NATS      `yaml:"nats"`
	OTEL      OTEL      `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	// Mounted lists the agents served by this process.
	Mounted  []string `yaml:"agents"`
	CardsDir string   `yaml:"cards_dir"` // <agent>.json agent cards; built-in cards when empty
	// RateLimit is the sustained POST /message rate per client in requests
	// per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Stream holds progress stream configuration.
type Stream struct {
	Mode         string        `yaml:"mode"` // "live" | "scripted"
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// Store holds task store configuration.
type Store struct {
	MaxTasks int `yaml:"max_tasks"`
}

// Executor holds task executor configuration.
type Executor struct {
	WorkerTimeout time.Duration `yaml:"worker_timeout"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Agents holds the orchestrator's view of the downstream agents.
type Agents struct {
	TriageURL          string        `yaml:"triage_url"`
	ResearchURL        string        `yaml:"research_url"`
	ReviewURL          string        `yaml:"review_url"`
	PresentationURL    string        `yaml:"presentation_url"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ResubscribeTimeout time.Duration `yaml:"resubscribe_timeout"`
	CardCacheMB        int64         `yaml:"card_cache_mb"`
	CardTTL            time.Duration `yaml:"card_ttl"`
}

// URL returns the base URL configured for the named agent, or "" for an
// unknown name.
func (a Agents) URL(name string) string {
	switch name {
	case "triage":
		return a.TriageURL
	case "research":
		return a.ResearchURL
	case "review":
		return a.ReviewURL
	case "presentation":
		return a.PresentationURL
	}
	return ""
}

// Providers selects the worker variant per agent and holds provider credentials.
type Providers struct {
	Triage       string `yaml:"triage"`       // "rules" | "openai"
	Research     string `yaml:"research"`     // "mock" | "gemini" | "openai"
	Review       string `yaml:"review"`       // "mock" | "openai"
	Presentation string `yaml:"presentation"` // "mock" | "gamma"

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	GeminiAPIKey  string `yaml:"gemini_api_key"`
	GeminiBaseURL string `yaml:"gemini_base_url"`
	GeminiModel   string `yaml:"gemini_model"`

	GammaAPIKey       string        `yaml:"gamma_api_key"`
	GammaBaseURL      string        `yaml:"gamma_base_url"`
	GammaPollInterval time.Duration `yaml:"gamma_poll_interval"`
	GammaMaxPolls     int           `yaml:"gamma_max_polls"`
	GammaNumCards     int           `yaml:"gamma_num_cards"`
}

// NATS holds event bus configuration. An empty URL disables publishing.
type NATS struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// OTEL holds telemetry configuration. An empty endpoint disables OTLP export.
type OTEL struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
	Prometheus  bool   `yaml:"prometheus"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8000",
			CORSOrigin: "http://localhost:5173",
			Mounted:    []string{"triage", "research", "review", "presentation"},
			RateBurst:  10,
		},
		Logging: Logging{
			Level:   "info",
			Service: "a2a-pipeline",
		},
		Stream: Stream{
			Mode:         "live",
			PollInterval: 500 * time.Millisecond,
			MaxPolls:     120,
		},
		Store: Store{
			MaxTasks: 10000,
		},
		Executor: Executor{
			WorkerTimeout: 60 * time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Agents: Agents{
			TriageURL:          "http://localhost:8000/triage",
			ResearchURL:        "http://localhost:8000/research",
			ReviewURL:          "http://localhost:8000/review",
			PresentationURL:    "http://localhost:8000/presentation",
			RequestTimeout:     90 * time.Second,
			ResubscribeTimeout: 10 * time.Second,
			CardCacheMB:        4,
			CardTTL:            5 * time.Minute,
		},
		Providers: Providers{
			Triage:            "rules",
			Research:          "mock",
			Review:            "mock",
			Presentation:      "mock",
			OpenAIBaseURL:     "https://api.openai.com/v1",
			OpenAIModel:       "gpt-4o-mini",
			GeminiBaseURL:     "https://generativelanguage.googleapis.com",
			GeminiModel:       "gemini-1.5-flash",
			GammaBaseURL:      "https://public-api.gamma.app/v1.0",
			GammaPollInterval: 2 * time.Second,
			GammaMaxPolls:     30,
			GammaNumCards:     8,
		},
		NATS: NATS{
			SubjectPrefix: "a2a",
		},
		OTEL: OTEL{
			Insecure:    true,
			ServiceName: "a2a-pipeline",
		},
	}
}
