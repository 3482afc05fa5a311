package ratelimit

import (
	"context"
	"log/slog"

	"github.com/wisedom/wisedom/internal/cache"
)

// RedisLimiter shares buckets across instances through Redis.
// It fails open: Redis errors are logged and the request is allowed.
type RedisLimiter struct {
	cache  *cache.Cache
	cfg    Config
	logger *slog.Logger
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(c *cache.Cache, cfg Config, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{cache: c, cfg: cfg, logger: logger.With("component", "redis_limiter")}
}

// Allow consumes one token from key's shared bucket.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	res, err := r.cache.CheckIPRateLimit(ctx, key, r.cfg.RefillRate, r.cfg.MaxTokens)
	if err != nil {
		r.logger.Warn("rate_limit_backend_error", "error", err)
	}

	out := Result{
		Allowed:   res.Allowed,
		Limit:     r.cfg.MaxTokens,
		Remaining: int(res.Remaining),
	}
	if !res.Allowed {
		out.RetryAfter = max(res.RetryAfter, minRetryAfter)
	}
	return out, nil
}
