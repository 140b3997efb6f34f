package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultTier = "free"
	cacheTTL    = 5 * time.Minute
	cachePrefix = "auth:"
)

// Session is the authenticated user behind a bearer token.
type Session struct {
	UserID    string    `json:"user_id"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis
func (s *Session) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis
func (s *Session) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}

type Profile struct {
	ID               string
	Email            string
	FullName         string
	SubscriptionTier string
	CreatedAt        time.Time
}

type Store interface {
	GetSession(ctx context.Context, token string) (*Session, error)
	CreateProfile(ctx context.Context, p *Profile) error
	CreateSession(ctx context.Context, userID, token string, ttl time.Duration) error
	RevokeSession(ctx context.Context, token string) error
}

type Middleware func(next http.Handler) http.Handler

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	tierKey      contextKey = "tier"
	requestIDKey contextKey = "request_id"
)

func hashToken(token string) string {
	h := sha256.New()
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// NewMiddleware resolves the bearer session token, caching lookups in Redis
// when cache is non-nil.
func NewMiddleware(store Store, cache *redis.Client) Middleware {
	logger := slog.Default().With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := chimiddleware.GetReqID(ctx)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ctx = WithRequestID(ctx, requestID)
			w.Header().Set("X-Request-ID", requestID)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "Unauthorized")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			redisKey := fmt.Sprintf("%s%s", cachePrefix, hashToken(token))

			if cache != nil {
				var cached Session
				err := cache.Get(ctx, redisKey).Scan(&cached)
				if err == nil && time.Now().Before(cached.ExpiresAt) {
					next.ServeHTTP(w, r.WithContext(WithSession(ctx, &cached)))
					return
				} else if err != nil && err != redis.Nil {
					logger.Warn("redis error", "error", err)
				}
			}

			sess, err := store.GetSession(ctx, token)
			if err != nil {
				if errors.Is(err, ErrSessionNotFound) {
					unauthorized(w, "Unauthorized")
					return
				}
				logger.Error("session lookup failed", "error", err, "request_id", requestID)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
				return
			}

			if cache != nil {
				ttl := min(cacheTTL, time.Until(sess.ExpiresAt))
				if ttl > 0 {
					_ = cache.Set(ctx, redisKey, sess, ttl).Err()
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}

// Helpers to extract from context
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// Tier returns the session's subscription tier, or the free tier.
func Tier(ctx context.Context) string {
	if t, ok := ctx.Value(tierKey).(string); ok && t != "" {
		return t
	}
	return DefaultTier
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, userIDKey, s.UserID)
	return context.WithValue(ctx, tierKey, s.Tier)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// NewLogoutHandler revokes the bearer token of the request and evicts its
// cached session.
func NewLogoutHandler(store Store, cache *redis.Client) http.HandlerFunc {
	logger := slog.Default().With("component", "auth.logout")

	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || UserID(r.Context()) == "" {
			unauthorized(w, "Unauthorized")
			return
		}

		if err := store.RevokeSession(r.Context(), token); err != nil && !errors.Is(err, ErrSessionNotFound) {
			logger.Error("failed to revoke session", "error", err, "userId", UserID(r.Context()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
			return
		}
		if cache != nil {
			_ = cache.Del(r.Context(), cachePrefix+hashToken(token)).Err()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
