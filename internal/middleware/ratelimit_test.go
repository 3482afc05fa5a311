package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/ratelimit"
)

type stubLimiter struct {
	result ratelimit.Result
	err    error
	keys   []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	s.keys = append(s.keys, key)
	return s.result, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowedSetsHeaders(t *testing.T) {
	t.Parallel()

	lim := &stubLimiter{result: ratelimit.Result{Allowed: true, Limit: 100, Remaining: 42}}
	h := RateLimit(RateLimitConfig{Enabled: true, Limiter: lim, Logger: discardLogger()})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "100" {
		t.Errorf("expected limit 100, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "42" {
		t.Errorf("expected remaining 42, got %q", got)
	}
}

func TestRateLimit_Rejected(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	lim := &stubLimiter{result: ratelimit.Result{Limit: 100, RetryAfter: 1500 * time.Millisecond}}
	h := RateLimit(RateLimitConfig{Enabled: true, Limiter: lim, Logger: discardLogger(), Metrics: rec})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("expected Retry-After 2, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("expected remaining 0, got %q", got)
	}
	if !strings.Contains(w.Body.String(), `"code":"RATE_LIMITED"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if rec.Snapshot().RateLimited["ip"] != 1 {
		t.Error("expected rate limited metric to be recorded")
	}
}

func TestRateLimit_RetryAfterAtLeastOneSecond(t *testing.T) {
	t.Parallel()

	lim := &stubLimiter{result: ratelimit.Result{Limit: 1}}
	h := RateLimit(RateLimitConfig{Enabled: true, Limiter: lim, Logger: discardLogger()})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After 1, got %q", got)
	}
}

func TestRateLimit_FailsOpenOnError(t *testing.T) {
	t.Parallel()

	lim := &stubLimiter{err: errors.New("backend down")}
	h := RateLimit(RateLimitConfig{Enabled: true, Limiter: lim, Logger: discardLogger()})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	lim := &stubLimiter{}
	h := RateLimit(RateLimitConfig{Enabled: false, Limiter: lim, Logger: discardLogger()})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK || len(lim.keys) != 0 {
		t.Errorf("expected limiter to be bypassed, got status %d and %d calls", w.Code, len(lim.keys))
	}
}

func TestRateLimit_KeysOnClientIP(t *testing.T) {
	t.Parallel()

	lim := &stubLimiter{result: ratelimit.Result{Allowed: true}}
	h := RateLimit(RateLimitConfig{Enabled: true, Limiter: lim, Logger: discardLogger()})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(lim.keys) != 1 || lim.keys[0] != "203.0.113.9" {
		t.Errorf("expected key 203.0.113.9, got %v", lim.keys)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded for first entry", "198.51.100.1, 10.0.0.2", "", "10.0.0.3:1234", "198.51.100.1"},
		{"forwarded for single", "198.51.100.1", "", "10.0.0.3:1234", "198.51.100.1"},
		{"real ip", "", "198.51.100.7", "10.0.0.3:1234", "198.51.100.7"},
		{"remote addr host", "", "", "192.0.2.4:5678", "192.0.2.4"},
		{"remote addr without port", "", "", "192.0.2.4", "192.0.2.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := ClientIP(req); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
