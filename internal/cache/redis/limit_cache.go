package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// LimitCache implements domain.LimitCache as JSON strings, readable with
// redis-cli when checking why a subscription was rejected.
type LimitCache struct {
	c *Client
}

// NewLimitCache creates a LimitCache backed by the given Client.
func NewLimitCache(c *Client) *LimitCache {
	return &LimitCache{c: c}
}

func (lc *LimitCache) SetLimit(ctx context.Context, limit domain.PurchaseLimit, ttl time.Duration) error {
	data, err := json.Marshal(limit)
	if err != nil {
		return fmt.Errorf("redis: encode limit %s: %w", limit.FundCode, err)
	}
	if err := lc.c.rdb.Set(ctx, lc.c.Key("limit", limit.FundCode), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set limit %s: %w", limit.FundCode, err)
	}
	return nil
}

func (lc *LimitCache) GetLimit(ctx context.Context, fundCode string) (domain.PurchaseLimit, error) {
	data, err := lc.c.rdb.Get(ctx, lc.c.Key("limit", fundCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PurchaseLimit{}, domain.ErrNotFound
		}
		return domain.PurchaseLimit{}, fmt.Errorf("redis: get limit %s: %w", fundCode, err)
	}
	var limit domain.PurchaseLimit
	if err := json.Unmarshal(data, &limit); err != nil {
		return domain.PurchaseLimit{}, fmt.Errorf("redis: decode limit %s: %w", fundCode, err)
	}
	return limit, nil
}

var _ domain.LimitCache = (*LimitCache)(nil)
