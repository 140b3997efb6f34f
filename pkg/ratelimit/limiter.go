// Package ratelimit implements a process-local sliding-window request limiter.
//
// State is owned by an explicit *State value shared by every Limiter built
// over it. It is not synchronized across processes: each instance of the
// service enforces its own window.
package ratelimit

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

type entry struct {
	window   time.Duration
	requests []time.Time
}

// State holds the request timestamps of every limiter key.
type State struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewState() *State {
	return &State{entries: make(map[string]*entry)}
}

// Len returns the number of tracked keys.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops keys whose newest request is older than twice their window
// and returns how many were removed.
func (s *State) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if len(e.requests) == 0 || now.Sub(e.requests[len(e.requests)-1]) > 2*e.window {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

type Config struct {
	Window      time.Duration
	MaxRequests int
	KeyPrefix   string
}

// Result describes a single check. Reset is when the oldest counted request
// leaves the window. RetryAfter is in whole seconds and only set on rejection.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter int
}

type Limiter struct {
	cfg      Config
	state    *State
	now      func() time.Time
	logger   *slog.Logger
	onReject func(pool string)
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithRejectHook registers fn to be called with the key prefix on every rejection.
func WithRejectHook(fn func(pool string)) Option {
	return func(l *Limiter) { l.onReject = fn }
}

func New(state *State, cfg Config, opts ...Option) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 60
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl"
	}

	l := &Limiter{
		cfg:    cfg,
		state:  state,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "rate-limit", "pool", cfg.KeyPrefix)
	return l
}

func (l *Limiter) Name() string {
	return l.cfg.KeyPrefix
}

func (l *Limiter) key(identifier string) string {
	return l.cfg.KeyPrefix + ":" + identifier
}

// Check counts one request for identifier unless the window is already full.
func (l *Limiter) Check(identifier string) Result {
	now := l.now()
	window := l.cfg.Window

	l.state.mu.Lock()
	defer l.state.mu.Unlock()

	key := l.key(identifier)
	e, ok := l.state.entries[key]
	if !ok {
		e = &entry{window: window}
		l.state.entries[key] = e
	}

	kept := e.requests[:0]
	for _, ts := range e.requests {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	e.requests = kept

	if len(e.requests) >= l.cfg.MaxRequests {
		reset := e.requests[0].Add(window)
		retryAfter := int(math.Ceil(reset.Sub(now).Seconds()))

		l.logger.Warn("Rate limit exceeded",
			"identifier", identifier,
			"requests", len(e.requests),
			"limit", l.cfg.MaxRequests,
			"retryAfter", retryAfter,
		)

		return Result{
			Allowed:    false,
			Limit:      l.cfg.MaxRequests,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: retryAfter,
		}
	}

	e.requests = append(e.requests, now)

	return Result{
		Allowed:   true,
		Limit:     l.cfg.MaxRequests,
		Remaining: l.cfg.MaxRequests - len(e.requests),
		Reset:     e.requests[0].Add(window),
	}
}
