package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/vnmchuo/eagleeye/config"
	"github.com/vnmchuo/eagleeye/internal/auth"
	"github.com/vnmchuo/eagleeye/internal/bots"
	"github.com/vnmchuo/eagleeye/internal/chat"
	"github.com/vnmchuo/eagleeye/internal/health"
	"github.com/vnmchuo/eagleeye/internal/provider/openai"
	"github.com/vnmchuo/eagleeye/internal/quota"
	"github.com/vnmchuo/eagleeye/internal/seeder"
	"github.com/vnmchuo/eagleeye/internal/telemetry"
	"github.com/vnmchuo/eagleeye/internal/workspace"
	"github.com/vnmchuo/eagleeye/pkg/ratelimit"
)

const (
	serviceName    = "eagleeye"
	serviceVersion = "0.3.0"
)

type schema interface {
	EnsureSchema(ctx context.Context) error
}

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer(serviceName, serviceVersion, cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()
	tracer := otel.GetTracerProvider().Tracer(serviceName)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	sink := telemetry.NewEventSink(tracer, logger, 256)
	defer sink.Close()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("PostgreSQL connected")

	authStore := auth.NewPostgresStore(pool)
	usageStore := quota.NewPostgresStore(pool)
	historyStore := chat.NewPostgresStore(pool)
	workspaceStore := workspace.NewPostgresStore(pool)
	for _, s := range []schema{authStore, usageStore, historyStore, workspaceStore} {
		if err := s.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to ensure schema: %v", err)
		}
	}

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Println("Redis connected")

	// 5. Init auth
	authMiddleware := auth.NewMiddleware(authStore, rdb)

	// 6. Init quota tracker
	tracker := quota.NewTracker(usageStore, quota.Tiers(cfg.Limits.Tiers), bots.IDs(),
		quota.WithLogger(logger),
		quota.WithSink(sink),
		quota.WithMetrics(metrics),
	)

	// 7. Init rate limiters
	poolConfigs := make(map[string]ratelimit.Config, len(cfg.Limits.Pools))
	for name, p := range cfg.Limits.Pools {
		poolConfigs[name] = ratelimit.Config{Window: p.Window, MaxRequests: p.MaxRequests}
	}
	limiterState := ratelimit.NewState()
	limiters, err := ratelimit.NewPools(limiterState, poolConfigs,
		ratelimit.WithLogger(logger),
		ratelimit.WithRejectHook(metrics.RateLimitRejected),
	)
	if err != nil {
		log.Fatalf("failed to init rate limiters: %v", err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweeper := ratelimit.NewSweeper(limiterState, cfg.Limits.SweepSchedule)
	if err := sweeper.Start(sweepCtx); err != nil {
		log.Fatalf("failed to start rate limit sweeper: %v", err)
	}

	// 8. Init provider
	aiProvider := openai.New(cfg.OpenAIAPIKey,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithModel(cfg.OpenAIModel),
	)
	completer := chat.NewCompleter(aiProvider)

	// 9. Init handlers
	chatHandler := chat.NewHandler(tracker, completer, historyStore, workspaceStore, tracer,
		chat.WithMetrics(metrics),
		chat.WithSink(sink),
		chat.WithLogger(logger),
	)
	workspaceHandler := workspace.NewHandler(workspaceStore)
	healthHandler := health.NewHandler(serviceName, serviceVersion,
		pool,
		health.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		aiProvider,
		health.WithLogger(logger),
		health.WithEnvironment(map[string]bool{
			"postgres": cfg.PostgresDSN != "",
			"redis":    cfg.RedisAddr != "",
			"openai":   cfg.OpenAIAPIKey != "",
		}),
	)

	// 10. Seed dev session if RUN_SEED=true
	if cfg.RunSeed {
		if _, err := seeder.SeedDevSession(ctx, authStore); err != nil {
			log.Printf("[Seeder] %v", err)
		}
	}

	// 11. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", metrics.Handler())

	r.With(limiters.Health.Middleware).Get("/api/health", healthHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(limiters.Auth.Middleware)
		r.Use(authMiddleware)
		r.Post("/api/auth/logout", auth.NewLogoutHandler(authStore, rdb))
	})

	r.Group(func(r chi.Router) {
		r.Use(limiters.API.Middleware)
		r.Use(authMiddleware)
		r.Get("/api/todos", workspaceHandler.HandleList)
		r.Post("/api/todos", workspaceHandler.HandleCreate)
		r.Patch("/api/todos", workspaceHandler.HandleUpdate)
		r.Get("/api/goals", workspaceHandler.HandleListGoals)
		r.Post("/api/goals", workspaceHandler.HandleCreateGoal)
		r.Patch("/api/goals", workspaceHandler.HandleUpdateGoal)
		r.Get("/api/context", workspaceHandler.HandleGetContext)
		r.Put("/api/context", workspaceHandler.HandlePutContext)
	})

	r.Group(func(r chi.Router) {
		r.Use(limiters.AI.Middleware)
		r.Use(authMiddleware)
		r.Get("/api/ai/usage", chatHandler.HandleUsage)
		r.Post("/api/ai/{bot}", chatHandler.HandleChat)
		r.Get("/api/ai/{bot}/limit", chatHandler.HandleLimit)
	})

	// 12. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("EagleEye starting on port %s (%s)", cfg.Port, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	sweeper.Stop()
	log.Println("Server stopped")
}
