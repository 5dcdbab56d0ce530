package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8000" {
		t.Errorf("expected port 8000, got %s", cfg.Server.Port)
	}
	if cfg.Stream.PollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %v", cfg.Stream.PollInterval)
	}
	if cfg.Stream.MaxPolls != 120 {
		t.Errorf("expected max polls 120, got %d", cfg.Stream.MaxPolls)
	}
	if cfg.Agents.RequestTimeout != 90*time.Second {
		t.Errorf("expected request timeout 90s, got %v", cfg.Agents.RequestTimeout)
	}
	if len(cfg.Server.Mounted) != 4 {
		t.Errorf("expected all four agents mounted, got %v", cfg.Server.Mounted)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected NATS disabled by default, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
  agents: [triage, presentation]
stream:
  mode: scripted
providers:
  research: gemini
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if strings.Join(cfg.Server.Mounted, ",") != "triage,presentation" {
		t.Errorf("expected triage,presentation, got %v", cfg.Server.Mounted)
	}
	if cfg.Stream.Mode != "scripted" {
		t.Errorf("expected scripted stream, got %s", cfg.Stream.Mode)
	}
	if cfg.Providers.Research != "gemini" {
		t.Errorf("expected gemini research, got %s", cfg.Providers.Research)
	}
	// Unchanged fields keep defaults
	if cfg.Providers.Review != "mock" {
		t.Errorf("expected default review provider, got %s", cfg.Providers.Review)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("A2A_PORT", "7070")
	t.Setenv("A2A_AGENTS", "triage, review")
	t.Setenv("A2A_STREAM_POLL_INTERVAL", "250ms")
	t.Setenv("TRIAGE_URL", "http://triage:9000")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("A2A_BREAKER_TIMEOUT", "1m")
	t.Setenv("A2A_LOG_ASYNC", "true")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if strings.Join(cfg.Server.Mounted, ",") != "triage,review" {
		t.Errorf("expected trimmed agent list, got %v", cfg.Server.Mounted)
	}
	if cfg.Stream.PollInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Stream.PollInterval)
	}
	if cfg.Agents.TriageURL != "http://triage:9000" {
		t.Errorf("expected triage url override, got %s", cfg.Agents.TriageURL)
	}
	if cfg.Providers.GeminiAPIKey != "g-key" {
		t.Errorf("expected gemini key, got %s", cfg.Providers.GeminiAPIKey)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if !cfg.Logging.Async {
		t.Error("expected async logging")
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "unknown agent",
			modify: func(c *Config) { c.Server.Mounted = []string{"triage", "billing"} },
			errMsg: `unknown agent "billing"`,
		},
		{
			name:   "bad stream mode",
			modify: func(c *Config) { c.Stream.Mode = "push" },
			errMsg: "stream.mode must be live or scripted",
		},
		{
			name:   "zero max polls",
			modify: func(c *Config) { c.Stream.MaxPolls = 0 },
			errMsg: "stream.max_polls must be >= 1",
		},
		{
			name:   "zero worker timeout",
			modify: func(c *Config) { c.Executor.WorkerTimeout = 0 },
			errMsg: "executor.worker_timeout must be > 0",
		},
		{
			name:   "request timeout below worker timeout",
			modify: func(c *Config) { c.Agents.RequestTimeout = 20 * time.Second },
			errMsg: "agents.request_timeout (20s) must exceed executor.worker_timeout (1m0s)",
		},
		{
			name:   "request timeout equal to worker timeout",
			modify: func(c *Config) { c.Agents.RequestTimeout = c.Executor.WorkerTimeout },
			errMsg: "must exceed executor.worker_timeout",
		},
		{
			name:   "unknown research provider",
			modify: func(c *Config) { c.Providers.Research = "claude" },
			errMsg: "providers.research must be one of mock, gemini, openai",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Fatalf("defaults should be valid, got %v", err)
	}
}

func TestApplyCLI(t *testing.T) {
	cfg := Defaults()
	ApplyCLI(&cfg, &CLIFlags{Port: "1234", LogLevel: "debug", StreamMode: "scripted", Agents: []string{"review"}})

	if cfg.Server.Port != "1234" {
		t.Errorf("expected port 1234, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
	if cfg.Stream.Mode != "scripted" {
		t.Errorf("expected scripted, got %s", cfg.Stream.Mode)
	}
	if len(cfg.Server.Mounted) != 1 || cfg.Server.Mounted[0] != "review" {
		t.Errorf("expected review only, got %v", cfg.Server.Mounted)
	}
}

func TestApplyCLINilFlags(t *testing.T) {
	cfg := Defaults()
	ApplyCLI(&cfg, nil)
	if cfg.Server.Port != "8000" {
		t.Errorf("nil flags should not change config, got port %s", cfg.Server.Port)
	}
}

func TestCLIOverridesEnv(t *testing.T) {
	t.Setenv("A2A_PORT", "7070")

	cfg, err := LoadWithCLI("/nonexistent.yaml", &CLIFlags{Port: "6060"})
	if err != nil {
		t.Fatalf("LoadWithCLI: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("CLI should override env: got %s", cfg.Server.Port)
	}
}

func TestLoadWithCLICustomConfig(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(yamlPath, []byte("server:\n  port: \"5050\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithCLI("/nonexistent.yaml", &CLIFlags{ConfigFile: yamlPath})
	if err != nil {
		t.Fatalf("LoadWithCLI: %v", err)
	}
	if cfg.Server.Port != "5050" {
		t.Errorf("expected port from custom config, got %s", cfg.Server.Port)
	}
}

func TestAgentURL(t *testing.T) {
	a := Defaults().Agents
	if got := a.URL("review"); got != "http://localhost:8000/review" {
		t.Fatalf("expected review url, got %q", got)
	}
	if got := a.URL("nope"); got != "" {
		t.Fatalf("expected empty url for unknown agent, got %q", got)
	}
}
