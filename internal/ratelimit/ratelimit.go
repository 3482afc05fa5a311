// Package ratelimit implements per-client token buckets.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config sizes every bucket.
type Config struct {
	// MaxTokens is the bucket capacity.
	MaxTokens int
	// RefillRate is tokens per second.
	RefillRate float64
	// IdleTTL is how long an unused bucket is kept in memory.
	IdleTTL time.Duration
}

// DefaultConfig is 100 tokens refilled at 10 per second.
func DefaultConfig() Config {
	return Config{
		MaxTokens:  100,
		RefillRate: 10,
		IdleTTL:    10 * time.Minute,
	}
}

// minRetryAfter is the smallest Retry-After ever reported.
const minRetryAfter = time.Second
