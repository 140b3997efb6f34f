package provider

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when the provider has no credentials.
var ErrNotConfigured = errors.New("provider not configured")

type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// Metadata for tracing
	UserID    string
	RequestID string
}

type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

type Response struct {
	ID           string
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	Provider     string
	LatencyMs    int64
}

type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Ping checks that the provider is reachable with the configured credentials.
	Ping(ctx context.Context) error
	Name() string
}
