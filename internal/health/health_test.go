package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ok() Pinger {
	return PingFunc(func(ctx context.Context) error { return nil })
}

func failing(msg string) Pinger {
	return PingFunc(func(ctx context.Context) error { return errors.New(msg) })
}

func serve(t *testing.T, h *Handler) (int, Report) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	var report Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	return w.Code, report
}

func TestHealth_AllOK(t *testing.T) {
	h := NewHandler("eagleeye", "0.3.0", ok(), ok(), ok(),
		WithEnvironment(map[string]bool{"postgres": true, "openai": true}))

	code, report := serve(t, h)
	if code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}
	if report.Status != StatusOK {
		t.Errorf("Expected ok, got %s", report.Status)
	}
	for _, name := range []string{"database", "redis", "ai"} {
		if report.Checks[name] != StatusOK {
			t.Errorf("Expected %s ok, got %v", name, report.Checks[name])
		}
	}
	if report.Service != "eagleeye" || report.Version != "0.3.0" {
		t.Errorf("Unexpected service info %s/%s", report.Service, report.Version)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := NewHandler("eagleeye", "0.3.0", failing("connection refused"), ok(), ok())

	code, report := serve(t, h)
	if code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", code)
	}
	if report.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", report.Status)
	}
	if report.Checks["database"] != StatusError || report.Checks["databaseError"] != "connection refused" {
		t.Errorf("Unexpected database check %v", report.Checks)
	}
	if report.Checks["redis"] != StatusOK {
		t.Errorf("Other checks should still run, got %v", report.Checks)
	}
}

func TestHealth_MissingEnvironment(t *testing.T) {
	h := NewHandler("eagleeye", "0.3.0", ok(), ok(), nil,
		WithEnvironment(map[string]bool{"postgres": true, "openai": false}))

	code, report := serve(t, h)
	if code != http.StatusServiceUnavailable || report.Status != StatusDegraded {
		t.Errorf("Expected degraded/503, got %s/%d", report.Status, code)
	}
	if _, ok := report.Checks["ai"]; ok {
		t.Error("A nil pinger should be skipped")
	}
	if report.Environment["openai"] {
		t.Error("Expected openai to be reported missing")
	}
}

func TestHealth_SlowProviderTimesOut(t *testing.T) {
	slow := PingFunc(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	})
	h := NewHandler("eagleeye", "0.3.0", ok(), ok(), slow, WithTimeout(20*time.Millisecond))

	start := time.Now()
	report := h.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Error("Check should abort once the timeout expires")
	}
	if report.Status != StatusDegraded || report.Checks["ai"] != StatusError {
		t.Errorf("Expected ai check to fail, got %v", report.Checks)
	}
}
