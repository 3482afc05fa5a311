package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory.
// Suitable for a single instance; use RedisLimiter when running several.
type MemoryLimiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemoryLimiter creates the limiter and starts its janitor goroutine.
// Call Close to stop the janitor.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	m := &MemoryLimiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Allow consumes one token from key's bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(m.cfg.RefillRate), m.cfg.MaxTokens)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	res := Result{Limit: m.cfg.MaxTokens}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = true
		res.Remaining = int(math.Floor(b.limiter.TokensAt(now)))
		return res, nil
	}

	res.RetryAfter = retryAfter(b.limiter.TokensAt(now), m.cfg.RefillRate)
	return res, nil
}

// retryAfter is the whole seconds until one token is available, at least 1s.
func retryAfter(tokens, refill float64) time.Duration {
	if refill <= 0 {
		return minRetryAfter
	}
	secs := math.Ceil((1 - tokens) / refill)
	d := time.Duration(secs) * time.Second
	if d < minRetryAfter {
		return minRetryAfter
	}
	return d
}

// Len returns the number of tracked buckets.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Close stops the janitor and waits for it to exit.
func (m *MemoryLimiter) Close() {
	m.once.Do(func() { close(m.stop) })
	<-m.done
}

func (m *MemoryLimiter) janitor() {
	defer close(m.done)

	interval := m.cfg.IdleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle(m.now())
		}
	}
}

// evictIdle drops buckets unused for longer than IdleTTL.
func (m *MemoryLimiter) evictIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.cfg.IdleTTL {
			delete(m.buckets, key)
			evicted++
		}
	}
	return evicted
}
