package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/A2APipeline/internal/adapter/otel"
	"github.com/Strob0t/A2APipeline/internal/middleware"
	"github.com/Strob0t/A2APipeline/internal/port/a2a"
)

// StatusMessage is returned by GET / on the unified host.
const StatusMessage = "A2A Unified Backend Running"

// DefaultRequestTimeout bounds non-streaming requests.
const DefaultRequestTimeout = 90 * time.Second

// Mount is one agent served by the host.
type Mount struct {
	Exec Executor
	Card *a2a.Handler
}

// HostConfig wires the unified host router.
type HostConfig struct {
	CORSOrigin     string
	ServiceName    string // enables otel spans when set
	RequestTimeout time.Duration
	Agents         []Mount
	RateLimit      *middleware.RateLimiter // POST /message limit; nil disables
	Metrics        http.Handler            // GET /metrics when set
	WS             http.Handler            // GET /ws when set
}

// NewRouter builds the unified host: every agent under /<name> plus the
// status, health, metrics and websocket endpoints.
func NewRouter(cfg HostConfig) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(CORS(cfg.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.ServiceName != "" {
		r.Use(cfotel.HTTPMiddleware(cfg.ServiceName))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": StatusMessage})
	})

	names := make([]string, 0, len(cfg.Agents))
	for _, m := range cfg.Agents {
		names = append(names, m.Exec.Name())
	}
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "agents": names})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.WS != nil {
		r.Method(http.MethodGet, "/ws", cfg.WS)
	}

	timeout := chimw.Timeout(cfg.RequestTimeout)
	for _, m := range cfg.Agents {
		h := &AgentHandlers{Exec: m.Exec, Limit: cfg.RateLimit}
		r.Route("/"+m.Exec.Name(), func(r chi.Router) {
			h.MountRoutes(r, timeout)
			if m.Card != nil {
				m.Card.MountRoutes(r)
			}
		})
	}

	return r
}
