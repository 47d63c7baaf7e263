package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache. Snapshots are written on
// every screening pass, so they are stored as msgpack to keep the hot path
// small.
type SnapshotCache struct {
	c *Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{c: c}
}

// SetSnapshot stores snap under its fund code for ttl.
func (sc *SnapshotCache) SetSnapshot(ctx context.Context, snap domain.FundSnapshot, ttl time.Duration) error {
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("redis: encode snapshot %s: %w", snap.FundCode, err)
	}
	if err := sc.c.rdb.Set(ctx, sc.c.Key("snapshot", snap.FundCode), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", snap.FundCode, err)
	}
	return nil
}

// GetSnapshot returns domain.ErrNotFound on a miss.
func (sc *SnapshotCache) GetSnapshot(ctx context.Context, fundCode string) (domain.FundSnapshot, error) {
	data, err := sc.c.rdb.Get(ctx, sc.c.Key("snapshot", fundCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.FundSnapshot{}, domain.ErrNotFound
		}
		return domain.FundSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", fundCode, err)
	}
	var snap domain.FundSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return domain.FundSnapshot{}, fmt.Errorf("redis: decode snapshot %s: %w", fundCode, err)
	}
	return snap, nil
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)
