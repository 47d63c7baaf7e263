package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

var base = time.Date(2026, 10, 17, 2, 0, 0, 0, time.UTC)

func newRecord(t *testing.T, id, owner, fund string, typ domain.ArbType, amount float64, offset time.Duration) domain.ArbitrageRecord {
	t.Helper()
	r, err := domain.NewArbitrageRecord(domain.NewRecordParams{
		ID: id, Owner: owner, FundCode: fund, Type: typ,
		InitialPrice: 1.0, InitialAmount: amount, InitialDate: "2026-10-17",
		Now: base.Add(offset),
	})
	require.NoError(t, err)
	return r
}

func capCheck(limit float64, amount float64) func(float64) error {
	return func(total float64) error {
		if total+amount > limit {
			return fmt.Errorf("over cap: total %v", total)
		}
		return nil
	}
}

func TestCreateGetAndOwnerIsolation(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()
	rec := newRecord(t, "r1", "alice", "161725", domain.ArbPremium, 1000, 0)
	require.NoError(t, s.CreateWithinCap(ctx, rec, nil))

	got, err := s.Get(ctx, "alice", "r1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = s.Get(ctx, "bob", "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.CreateWithinCap(ctx, rec, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	assert.ErrorIs(t, s.Delete(ctx, "bob", "r1"), domain.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "alice", "r1"))
	_, err = s.Get(ctx, "alice", "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateIsAtomicAndLeavesRecordOnFailure(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()
	require.NoError(t, s.CreateWithinCap(ctx, newRecord(t, "r1", "alice", "161725", domain.ArbPremium, 1000, 0), nil))

	done, err := s.Update(ctx, "alice", "r1", func(r *domain.ArbitrageRecord) error {
		return r.Complete(domain.CompleteParams{FinalPrice: 1.1, Now: base})
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)

	_, err = s.Update(ctx, "alice", "r1", func(r *domain.ArbitrageRecord) error {
		return r.Cancel(base)
	})
	var conflict *domain.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusCompleted, conflict.Status)

	stored, err := s.Get(ctx, "alice", "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.InDelta(t, 100.0, *stored.Profit, 1e-9)

	// Mutating a returned record must not leak into the store.
	*done.Profit = -1
	stored, _ = s.Get(ctx, "alice", "r1")
	assert.InDelta(t, 100.0, *stored.Profit, 1e-9)

	_, err = s.Update(ctx, "bob", "r1", func(*domain.ArbitrageRecord) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDailySubscriptionTotal(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()
	for _, r := range []domain.ArbitrageRecord{
		newRecord(t, "a", "alice", "161725", domain.ArbPremium, 1000, 0),
		newRecord(t, "b", "alice", "161725", domain.ArbPremium, 2000, time.Second),
		newRecord(t, "c", "alice", "161725", domain.ArbDiscount, 4000, 2*time.Second),
		newRecord(t, "d", "alice", "501018", domain.ArbPremium, 8000, 3*time.Second),
		newRecord(t, "e", "bob", "161725", domain.ArbPremium, 16000, 4*time.Second),
		newRecord(t, "f", "alice", "161725", domain.ArbPremium, 32000, 5*time.Second),
	} {
		require.NoError(t, s.CreateWithinCap(ctx, r, nil))
	}
	_, err := s.Update(ctx, "alice", "f", func(r *domain.ArbitrageRecord) error { return r.Cancel(base) })
	require.NoError(t, err)
	_, err = s.Update(ctx, "alice", "b", func(r *domain.ArbitrageRecord) error {
		return r.Complete(domain.CompleteParams{FinalPrice: 1, Now: base})
	})
	require.NoError(t, err)

	total, err := s.DailySubscriptionTotal(ctx, "alice", "161725", "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, total, "premium in-progress and completed only")

	total, err = s.DailySubscriptionTotal(ctx, "alice", "161725", "2026-10-16")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateWithinCapSerializesConcurrentCreators(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := range workers {
		r := newRecord(t, fmt.Sprintf("r%02d", i), "alice", "161725", domain.ArbPremium, 10000, time.Duration(i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.CreateWithinCap(ctx, r, capCheck(50000, 10000)); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	total, err := s.DailySubscriptionTotal(ctx, "alice", "161725", "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, total)
}

func TestListFiltersOrdersAndPaginates(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()
	for i := range 5 {
		fund := "161725"
		if i%2 == 1 {
			fund = "501018"
		}
		require.NoError(t, s.CreateWithinCap(ctx, newRecord(t, fmt.Sprintf("r%d", i), "alice", fund, domain.ArbPremium, 100, time.Duration(i)*time.Minute), nil))
	}
	require.NoError(t, s.CreateWithinCap(ctx, newRecord(t, "other", "bob", "161725", domain.ArbPremium, 100, 0), nil))

	all, err := s.List(ctx, domain.RecordFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "r4", all[0].ID, "newest first")

	byFund, err := s.List(ctx, domain.RecordFilter{Owner: "alice", FundCode: "501018"})
	require.NoError(t, err)
	assert.Len(t, byFund, 2)

	page, err := s.List(ctx, domain.RecordFilter{Owner: "alice", ListOpts: domain.ListOpts{Limit: 2, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r3", page[0].ID)

	_, err = s.List(ctx, domain.RecordFilter{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	everyone, err := s.ListAll(ctx, domain.RecordFilter{Status: domain.StatusInProgress})
	require.NoError(t, err)
	assert.Len(t, everyone, 6)
}
