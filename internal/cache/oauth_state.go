package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// oauthStatePrefix is the Redis key prefix for pending OAuth flows.
const oauthStatePrefix = "oauth:state:"

// OAuthState ties an authorization flow back to the user who started it.
type OAuthState struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

// SaveOAuthState stores state for ttl.
func (c *Cache) SaveOAuthState(ctx context.Context, state string, st OAuthState, ttl time.Duration) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal oauth state: %w", err)
	}
	return c.client.Set(ctx, oauthStatePrefix+state, data, ttl).Err()
}

// ConsumeOAuthState atomically reads and deletes state, so each state is
// usable exactly once. Missing or expired states return ErrNotFound.
func (c *Cache) ConsumeOAuthState(ctx context.Context, state string) (*OAuthState, error) {
	data, err := c.client.GetDel(ctx, oauthStatePrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}

	var st OAuthState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, ErrNotFound
	}
	return &st, nil
}
