package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wisedom/wisedom/internal/model"
)

// sessionCachePrefix is the Redis key prefix for resolved sessions.
const sessionCachePrefix = "session:"

// GetSession returns the cached auth context for a token hash.
// A miss or a corrupted entry returns (nil, nil).
func (c *Cache) GetSession(ctx context.Context, tokenHash string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, sessionCachePrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var ac model.AuthContext
	if err := json.Unmarshal(data, &ac); err != nil {
		return nil, nil //nolint:nilerr
	}
	return &ac, nil
}

// SetSession caches an auth context. The entry never outlives the session.
func (c *Cache) SetSession(ctx context.Context, tokenHash string, ac *model.AuthContext, ttl time.Duration) error {
	if remaining := time.Until(ac.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return c.client.Set(ctx, sessionCachePrefix+tokenHash, data, ttl).Err()
}

// DeleteSessions evicts cached sessions, e.g. after logout or a password reset.
func (c *Cache) DeleteSessions(ctx context.Context, tokenHashes ...string) error {
	if len(tokenHashes) == 0 {
		return nil
	}
	keys := make([]string, len(tokenHashes))
	for i, h := range tokenHashes {
		keys[i] = sessionCachePrefix + h
	}
	return c.client.Del(ctx, keys...).Err()
}
