package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// RecordStore persists arbitrage records keyed by owner and ID. Every
// mutation is an atomic read-modify-write on its key.
type RecordStore interface {
	// CreateWithinCap computes the owner's subscription total for the
	// record's fund and initial date, passes it to check, and inserts rec
	// only if check returns nil. Concurrent calls on the same
	// owner+fund+date serialize, so two creators cannot both pass a cap
	// check that only one of them fits under.
	CreateWithinCap(ctx context.Context, rec ArbitrageRecord, check func(dailyTotal float64) error) error

	// Get returns the owner's record. A record owned by someone else is
	// reported as ErrNotFound.
	Get(ctx context.Context, owner, id string) (ArbitrageRecord, error)

	// Update loads the owner's record, applies fn, and persists the result
	// if fn returns nil. Nothing is written when fn fails.
	Update(ctx context.Context, owner, id string, fn func(*ArbitrageRecord) error) (ArbitrageRecord, error)

	// Delete removes the owner's record.
	Delete(ctx context.Context, owner, id string) error

	// List returns records matching filter; filter.Owner is required.
	List(ctx context.Context, filter RecordFilter) ([]ArbitrageRecord, error)

	// ListAll is the administrative read path across every owner.
	ListAll(ctx context.Context, filter RecordFilter) ([]ArbitrageRecord, error)

	// DailySubscriptionTotal sums initial amounts of the owner's premium
	// records for fundCode dated on date that are in progress or completed.
	DailySubscriptionTotal(ctx context.Context, owner, fundCode, date string) (float64, error)
}
