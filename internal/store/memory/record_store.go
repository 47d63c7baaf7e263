// Package memory implements domain.RecordStore in process memory. It is the
// default backend for single-replica deployments and for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// RecordStore keeps records in a map guarded by one RWMutex. Every mutation
// holds the write lock for its whole read-check-write, which serializes cap
// checks for every owner+fund+date at once.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.ArbitrageRecord
}

// NewRecordStore creates an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]domain.ArbitrageRecord)}
}

// CreateWithinCap implements domain.RecordStore.
func (s *RecordStore) CreateWithinCap(_ context.Context, rec domain.ArbitrageRecord, check func(float64) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("memory: create record %s: %w", rec.ID, domain.ErrAlreadyExists)
	}
	if check != nil {
		total := s.dailyTotalLocked(rec.Owner, rec.FundCode, rec.InitialOperation.Date)
		if err := check(total); err != nil {
			return err
		}
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

// Get implements domain.RecordStore.
func (s *RecordStore) Get(_ context.Context, owner, id string) (domain.ArbitrageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok || r.Owner != owner {
		return domain.ArbitrageRecord{}, domain.ErrNotFound
	}
	return clone(r), nil
}

// Update implements domain.RecordStore. fn works on a copy, so a failing fn
// leaves the stored record untouched.
func (s *RecordStore) Update(_ context.Context, owner, id string, fn func(*domain.ArbitrageRecord) error) (domain.ArbitrageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.Owner != owner {
		return domain.ArbitrageRecord{}, domain.ErrNotFound
	}
	working := clone(r)
	if err := fn(&working); err != nil {
		return domain.ArbitrageRecord{}, err
	}
	s.records[id] = clone(working)
	return working, nil
}

// Delete implements domain.RecordStore.
func (s *RecordStore) Delete(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.Owner != owner {
		return domain.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// List implements domain.RecordStore.
func (s *RecordStore) List(ctx context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error) {
	if filter.Owner == "" {
		return nil, domain.NewValidationError("owner", "is required")
	}
	return s.ListAll(ctx, filter)
}

// ListAll implements domain.RecordStore. Records are returned newest first.
func (s *RecordStore) ListAll(_ context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error) {
	s.mu.RLock()
	out := make([]domain.ArbitrageRecord, 0, len(s.records))
	for _, r := range s.records {
		if !filter.Matches(r) {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && r.CreatedAt.After(*filter.Until) {
			continue
		}
		out = append(out, clone(r))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, filter.ListOpts), nil
}

// DailySubscriptionTotal implements domain.RecordStore.
func (s *RecordStore) DailySubscriptionTotal(_ context.Context, owner, fundCode, date string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dailyTotalLocked(owner, fundCode, date), nil
}

func (s *RecordStore) dailyTotalLocked(owner, fundCode, date string) float64 {
	var total float64
	for _, r := range s.records {
		if r.CountsToward(owner, fundCode, date) {
			total += r.InitialOperation.Amount
		}
	}
	return total
}

func paginate(rs []domain.ArbitrageRecord, opts domain.ListOpts) []domain.ArbitrageRecord {
	if opts.Offset > 0 {
		if opts.Offset >= len(rs) {
			return []domain.ArbitrageRecord{}
		}
		rs = rs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(rs) {
		rs = rs[:opts.Limit]
	}
	return rs
}

// clone deep-copies the pointer fields so callers never alias stored state.
func clone(r domain.ArbitrageRecord) domain.ArbitrageRecord {
	if r.FinalOperation != nil {
		op := *r.FinalOperation
		r.FinalOperation = &op
	}
	if r.Profit != nil {
		v := *r.Profit
		r.Profit = &v
	}
	if r.ProfitRate != nil {
		v := *r.ProfitRate
		r.ProfitRate = &v
	}
	return r
}

var _ domain.RecordStore = (*RecordStore)(nil)
