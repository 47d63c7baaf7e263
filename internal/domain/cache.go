package domain

import (
	"context"
	"time"
)

// SnapshotCache holds recently reconciled fund snapshots so API reads do not
// hit every upstream source.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, snap FundSnapshot, ttl time.Duration) error
	GetSnapshot(ctx context.Context, fundCode string) (FundSnapshot, error)
}

// LimitCache holds purchase limits between upstream lookups.
type LimitCache interface {
	SetLimit(ctx context.Context, limit PurchaseLimit, ttl time.Duration) error
	GetLimit(ctx context.Context, fundCode string) (PurchaseLimit, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// Signal bus channels.
const (
	ChannelOpportunities = "ch:opportunities"
	ChannelStatus        = "ch:status"
)

// SignalBus provides pub/sub fan-out of screening results.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
