package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const DefaultTimeout = 5 * time.Second

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Report struct {
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	Service     string          `json:"service"`
	Version     string          `json:"version"`
	Checks      map[string]any  `json:"checks"`
	Environment map[string]bool `json:"environment"`
}

type Handler struct {
	service  string
	version  string
	database Pinger
	cache    Pinger
	ai       Pinger
	env      map[string]bool
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Handler)

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithEnvironment reports which optional settings are present.
// Any false entry degrades the overall status.
func WithEnvironment(env map[string]bool) Option {
	return func(h *Handler) { h.env = env }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(service, version string, database, cache, ai Pinger, opts ...Option) *Handler {
	h := &Handler{
		service:  service,
		version:  version,
		database: database,
		cache:    cache,
		ai:       ai,
		env:      map[string]bool{},
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "health")
	return h
}

func (h *Handler) check(ctx context.Context, name string, p Pinger, checks map[string]any) bool {
	if p == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "check", name, "error", err)
		checks[name] = StatusError
		checks[name+"Error"] = err.Error()
		return false
	}
	checks[name] = StatusOK
	return true
}

// Check pings every dependency and builds the report.
func (h *Handler) Check(ctx context.Context) Report {
	checks := make(map[string]any, 6)
	healthy := h.check(ctx, "database", h.database, checks)
	healthy = h.check(ctx, "redis", h.cache, checks) && healthy
	healthy = h.check(ctx, "ai", h.ai, checks) && healthy

	for _, present := range h.env {
		if !present {
			healthy = false
		}
	}

	status := StatusOK
	if !healthy {
		status = StatusDegraded
	}
	return Report{
		Status:      status,
		Timestamp:   h.now().UTC(),
		Service:     h.service,
		Version:     h.version,
		Checks:      checks,
		Environment: h.env,
	}
}

// ServeHTTP serves GET /api/health.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.Check(r.Context())

	code := http.StatusOK
	if report.Status != StatusOK {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
