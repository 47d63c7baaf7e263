package local

import (
	"context"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache in memory.
type SnapshotCache struct {
	m *TTLMap[domain.FundSnapshot]
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{m: NewTTLMap[domain.FundSnapshot]()}
}

func (c *SnapshotCache) SetSnapshot(_ context.Context, snap domain.FundSnapshot, ttl time.Duration) error {
	c.m.Set(snap.FundCode, snap, ttl)
	return nil
}

func (c *SnapshotCache) GetSnapshot(_ context.Context, fundCode string) (domain.FundSnapshot, error) {
	snap, ok := c.m.Get(fundCode)
	if !ok {
		return domain.FundSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

// LimitCache implements domain.LimitCache in memory.
type LimitCache struct {
	m *TTLMap[domain.PurchaseLimit]
}

func NewLimitCache() *LimitCache {
	return &LimitCache{m: NewTTLMap[domain.PurchaseLimit]()}
}

func (c *LimitCache) SetLimit(_ context.Context, limit domain.PurchaseLimit, ttl time.Duration) error {
	c.m.Set(limit.FundCode, limit, ttl)
	return nil
}

func (c *LimitCache) GetLimit(_ context.Context, fundCode string) (domain.PurchaseLimit, error) {
	l, ok := c.m.Get(fundCode)
	if !ok {
		return domain.PurchaseLimit{}, domain.ErrNotFound
	}
	return l, nil
}

var (
	_ domain.SnapshotCache = (*SnapshotCache)(nil)
	_ domain.LimitCache    = (*LimitCache)(nil)
)
