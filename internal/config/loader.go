package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "a2a-pipeline.yaml"

// KnownAgents are the agents a host can mount.
var KnownAgents = []string{"triage", "research", "review", "presentation"}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	return LoadWithCLI(yamlPath, nil)
}

// LoadWithCLI is LoadFrom with CLI flags applied last. A flag-supplied config
// file replaces yamlPath.
func LoadWithCLI(yamlPath string, flags *CLIFlags) (*Config, error) {
	if flags != nil && flags.ConfigFile != "" {
		yamlPath = flags.ConfigFile
	}

	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	ApplyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "A2A_PORT")
	setString(&cfg.Server.CORSOrigin, "A2A_CORS_ORIGIN")
	setList(&cfg.Server.Mounted, "A2A_AGENTS")
	setString(&cfg.Server.CardsDir, "A2A_CARDS_DIR")
	setFloat(&cfg.Server.RateLimit, "A2A_RATE_LIMIT")
	setInt(&cfg.Server.RateBurst, "A2A_RATE_BURST")

	setString(&cfg.Logging.Level, "A2A_LOG_LEVEL")
	setString(&cfg.Logging.Service, "A2A_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "A2A_LOG_ASYNC")

	setString(&cfg.Stream.Mode, "A2A_STREAM_MODE")
	setDuration(&cfg.Stream.PollInterval, "A2A_STREAM_POLL_INTERVAL")
	setInt(&cfg.Stream.MaxPolls, "A2A_STREAM_MAX_POLLS")

	setInt(&cfg.Store.MaxTasks, "A2A_STORE_MAX_TASKS")
	setDuration(&cfg.Executor.WorkerTimeout, "A2A_WORKER_TIMEOUT")

	setInt(&cfg.Breaker.MaxFailures, "A2A_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "A2A_BREAKER_TIMEOUT")

	// Orchestrator
	setString(&cfg.Agents.TriageURL, "TRIAGE_URL")
	setString(&cfg.Agents.ResearchURL, "RESEARCH_URL")
	setString(&cfg.Agents.ReviewURL, "REVIEW_URL")
	setString(&cfg.Agents.PresentationURL, "PRESENTATION_URL")
	setDuration(&cfg.Agents.RequestTimeout, "A2A_REQUEST_TIMEOUT")
	setDuration(&cfg.Agents.ResubscribeTimeout, "A2A_RESUBSCRIBE_TIMEOUT")
	setInt64(&cfg.Agents.CardCacheMB, "A2A_CARD_CACHE_MB")
	setDuration(&cfg.Agents.CardTTL, "A2A_CARD_TTL")

	// Providers
	setString(&cfg.Providers.Triage, "A2A_TRIAGE_PROVIDER")
	setString(&cfg.Providers.Research, "A2A_RESEARCH_PROVIDER")
	setString(&cfg.Providers.Review, "A2A_REVIEW_PROVIDER")
	setString(&cfg.Providers.Presentation, "A2A_PRESENTATION_PROVIDER")
	setString(&cfg.Providers.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.Providers.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Providers.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.Providers.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.Providers.GeminiBaseURL, "GEMINI_BASE_URL")
	setString(&cfg.Providers.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.Providers.GammaAPIKey, "GAMMA_API_KEY")
	setString(&cfg.Providers.GammaBaseURL, "GAMMA_BASE_URL")
	setDuration(&cfg.Providers.GammaPollInterval, "GAMMA_POLL_INTERVAL")
	setInt(&cfg.Providers.GammaMaxPolls, "GAMMA_MAX_POLLS")
	setInt(&cfg.Providers.GammaNumCards, "GAMMA_NUM_CARDS")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.SubjectPrefix, "A2A_NATS_SUBJECT_PREFIX")

	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "A2A_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Prometheus, "A2A_METRICS_PROMETHEUS")
}

// validate checks that required fields are set and enums are known.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	for _, a := range cfg.Server.Mounted {
		if !slices.Contains(KnownAgents, a) {
			return fmt.Errorf("server.agents: unknown agent %q", a)
		}
	}
	if cfg.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must be >= 0")
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst < 1 {
		return errors.New("server.rate_burst must be >= 1 when rate limiting")
	}
	if cfg.Stream.Mode != "live" && cfg.Stream.Mode != "scripted" {
		return fmt.Errorf("stream.mode must be live or scripted, got %q", cfg.Stream.Mode)
	}
	if cfg.Stream.PollInterval <= 0 {
		return errors.New("stream.poll_interval must be > 0")
	}
	if cfg.Stream.MaxPolls < 1 {
		return errors.New("stream.max_polls must be >= 1")
	}
	if cfg.Store.MaxTasks < 1 {
		return errors.New("store.max_tasks must be >= 1")
	}
	if cfg.Executor.WorkerTimeout <= 0 {
		return errors.New("executor.worker_timeout must be > 0")
	}
	// A client giving up before the agent's own worker deadline turns a
	// fallback answer into a transport failure.
	if cfg.Agents.RequestTimeout <= cfg.Executor.WorkerTimeout {
		return fmt.Errorf("agents.request_timeout (%s) must exceed executor.worker_timeout (%s)",
			cfg.Agents.RequestTimeout, cfg.Executor.WorkerTimeout)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if err := oneOf("providers.triage", cfg.Providers.Triage, "rules", "openai"); err != nil {
		return err
	}
	if err := oneOf("providers.research", cfg.Providers.Research, "mock", "gemini", "openai"); err != nil {
		return err
	}
	if err := oneOf("providers.review", cfg.Providers.Review, "mock", "openai"); err != nil {
		return err
	}
	if err := oneOf("providers.presentation", cfg.Providers.Presentation, "mock", "gamma"); err != nil {
		return err
	}
	if cfg.Providers.GammaMaxPolls < 1 {
		return errors.New("providers.gamma_max_polls must be >= 1")
	}
	return nil
}

func oneOf(field, v string, allowed ...string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), v)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
