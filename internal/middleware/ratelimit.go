package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/ratelimit"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Enabled bool
	Limiter ratelimit.Limiter
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// RateLimit limits requests per client IP.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			result, err := cfg.Limiter.Allow(r.Context(), ip)
			if err != nil {
				cfg.Logger.Error("rate_limit_check_failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				retry := retryAfterSeconds(result)
				cfg.Metrics.IncRateLimited("ip")
				cfg.Logger.Warn("rate_limit_exceeded",
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retry),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				WriteError(w, apperr.RateLimited(
					fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retry)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up to whole seconds, never below one.
func retryAfterSeconds(r ratelimit.Result) int {
	secs := int(math.Ceil(r.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// ClientIP extracts the client IP: the first X-Forwarded-For entry, then
// X-Real-IP, then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
