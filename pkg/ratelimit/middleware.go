package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr, or "unknown".
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// SetHeaders writes the X-RateLimit-* headers. Reset is sent as Unix seconds.
func SetHeaders(h http.Header, limit, remaining int, reset int64) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
}

type rejection struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware rejects requests over the limit with 429 and otherwise passes
// them through with the rate limit headers attached.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		res := l.Check(ip)

		SetHeaders(w.Header(), res.Limit, res.Remaining, res.Reset.Unix())

		if !res.Allowed {
			l.logger.Warn("Rate limit blocked request",
				"ip", ip,
				"endpoint", r.URL.Path,
				"remaining", res.Remaining,
			)
			if l.onReject != nil {
				l.onReject(l.cfg.KeyPrefix)
			}

			w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rejection{
				Error:      "Too many requests",
				Message:    fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", res.RetryAfter),
				RetryAfter: res.RetryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
