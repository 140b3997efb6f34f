package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string // default: 8080
	AppEnv   string // default: development
	LogLevel string // debug, info, warn, error; default: info

	// Database
	PostgresDSN string

	// Cache
	RedisAddr string

	// AI provider
	OpenAIAPIKey  string
	OpenAIBaseURL string // default: https://api.openai.com/v1
	OpenAIModel   string // default: gpt-4-turbo-preview

	// Observability
	OTELExporterType     string // "stdout", "otlp" or "none"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Limits
	LimitsFile string
	Limits     *Limits

	RunSeed bool
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		AppEnv:               getEnv("APP_ENV", "development"),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4-turbo-preview"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		LimitsFile:           os.Getenv("LIMITS_FILE"),
		RunSeed:              os.Getenv("RUN_SEED") == "true",
	}

	// Validation
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	switch cfg.OTELExporterType {
	case "stdout", "otlp", "none":
	default:
		return nil, fmt.Errorf("invalid OTEL_EXPORTER_TYPE %q", cfg.OTELExporterType)
	}

	cfg.Limits = DefaultLimits()
	if cfg.LimitsFile != "" {
		limits, err := LoadLimits(cfg.LimitsFile)
		if err != nil {
			return nil, err
		}
		cfg.Limits = limits
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
