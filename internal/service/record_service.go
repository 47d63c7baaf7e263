package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/limits"
)

// TransitionObserver is told whenever a record enters a new status.
type TransitionObserver interface {
	RecordTransition(arbType, status string)
}

// RecordService runs the arbitrage record lifecycle for one owner at a time
// and enforces daily subscription caps on premium records.
type RecordService struct {
	store    domain.RecordStore
	limits   LimitLookup
	observer TransitionObserver
	now      func() time.Time
	newID    func() (string, error)
	logger   *slog.Logger
}

// NewRecordService creates a RecordService. observer may be nil.
func NewRecordService(store domain.RecordStore, limits LimitLookup, observer TransitionObserver, logger *slog.Logger) *RecordService {
	return &RecordService{
		store:    store,
		limits:   limits,
		observer: observer,
		now:      time.Now,
		newID:    newRecordID,
		logger:   logger.With(slog.String("component", "record_service")),
	}
}

// newRecordID returns a UUIDv7 so IDs sort in creation order.
func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CreateRecordInput carries a new record's caller-supplied fields. Zero
// InitialShares is derived from amount/price; empty InitialDate is today.
type CreateRecordInput struct {
	Owner         string
	FundCode      string
	FundName      string
	Type          domain.ArbType
	InitialPrice  float64
	InitialShares float64
	InitialAmount float64
	InitialDate   string
}

// CreateRecord validates and stores a new in-progress record and returns its
// ID. Premium records are checked against the fund's purchase limit inside
// the store's per owner+fund+date critical section; a breach is returned as
// *domain.LimitExceededError.
func (s *RecordService) CreateRecord(ctx context.Context, in CreateRecordInput) (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("service: create record: id: %w", err)
	}

	rec, err := domain.NewArbitrageRecord(domain.NewRecordParams{
		ID:            id,
		Owner:         in.Owner,
		FundCode:      in.FundCode,
		FundName:      in.FundName,
		Type:          in.Type,
		InitialPrice:  in.InitialPrice,
		InitialShares: in.InitialShares,
		InitialAmount: in.InitialAmount,
		InitialDate:   in.InitialDate,
		Now:           s.now().UTC(),
	})
	if err != nil {
		return "", err
	}

	var check func(float64) error
	if rec.Type == domain.ArbPremium && s.limits != nil {
		limit := s.limits.Get(ctx, rec.FundCode)
		check = func(dailyTotal float64) error {
			c := limits.Validate(limit, dailyTotal, rec.InitialOperation.Amount)
			if !c.Allowed {
				return &domain.LimitExceededError{Check: c}
			}
			return nil
		}
	}

	if err := s.store.CreateWithinCap(ctx, rec, check); err != nil {
		return "", err
	}

	s.transition(rec)
	s.logger.InfoContext(ctx, "record_service: record created",
		slog.String("id", rec.ID),
		slog.String("owner", rec.Owner),
		slog.String("fund", rec.FundCode),
		slog.String("type", string(rec.Type)),
		slog.Float64("amount", rec.InitialOperation.Amount),
	)
	return rec.ID, nil
}

// CompleteRecordInput carries settlement fields. Nil FinalShares and
// FinalAmount are derived; empty FinalDate is today.
type CompleteRecordInput struct {
	ID          string
	Owner       string
	FinalPrice  float64
	FinalShares *float64
	FinalAmount *float64
	FinalDate   string
}

// CompleteRecord settles an in-progress record and computes its profit.
func (s *RecordService) CompleteRecord(ctx context.Context, in CompleteRecordInput) (domain.ArbitrageRecord, error) {
	rec, err := s.store.Update(ctx, in.Owner, in.ID, func(r *domain.ArbitrageRecord) error {
		return r.Complete(domain.CompleteParams{
			FinalPrice:  in.FinalPrice,
			FinalShares: in.FinalShares,
			FinalAmount: in.FinalAmount,
			FinalDate:   in.FinalDate,
			Now:         s.now().UTC(),
		})
	})
	if err != nil {
		return domain.ArbitrageRecord{}, err
	}

	s.transition(rec)
	s.logger.InfoContext(ctx, "record_service: record completed",
		slog.String("id", rec.ID),
		slog.String("owner", rec.Owner),
		slog.Float64("profit", deref(rec.Profit)),
	)
	return rec, nil
}

// CancelRecord cancels an in-progress record. It reports false with
// domain.ErrNotFound or a *domain.StateConflictError when nothing changed.
func (s *RecordService) CancelRecord(ctx context.Context, id, owner string) (bool, error) {
	now := s.now().UTC()
	rec, err := s.store.Update(ctx, owner, id, func(r *domain.ArbitrageRecord) error {
		return r.Cancel(now)
	})
	if err != nil {
		return false, err
	}
	s.transition(rec)
	s.logger.InfoContext(ctx, "record_service: record cancelled",
		slog.String("id", rec.ID), slog.String("owner", rec.Owner))
	return true, nil
}

// GetRecord returns one of the owner's records.
func (s *RecordService) GetRecord(ctx context.Context, id, owner string) (domain.ArbitrageRecord, error) {
	return s.store.Get(ctx, owner, id)
}

// ListRecords returns the owner's records, newest first.
func (s *RecordService) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown status")
	}
	return s.store.List(ctx, filter)
}

// ListAllRecords is the administrative read path across owners.
func (s *RecordService) ListAllRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error) {
	return s.store.ListAll(ctx, filter)
}

// DeleteRecord removes one of the owner's records.
func (s *RecordService) DeleteRecord(ctx context.Context, id, owner string) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "record_service: record deleted",
		slog.String("id", id), slog.String("owner", owner))
	return nil
}

// GetDailySubscriptionTotal sums the owner's counted premium subscriptions
// for fundCode on date (today when empty).
func (s *RecordService) GetDailySubscriptionTotal(ctx context.Context, owner, fundCode, date string) (float64, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return 0, err
	}
	return s.store.DailySubscriptionTotal(ctx, owner, fundCode, date)
}

// CheckPurchaseLimit previews whether the owner may subscribe amount to
// fundCode today without creating anything.
func (s *RecordService) CheckPurchaseLimit(ctx context.Context, owner, fundCode string, amount float64) (domain.LimitCheck, error) {
	if !(amount > 0) {
		return domain.LimitCheck{}, domain.NewValidationError("amount", "must be greater than 0")
	}
	total, err := s.GetDailySubscriptionTotal(ctx, owner, fundCode, "")
	if err != nil {
		return domain.LimitCheck{}, err
	}
	limit := domain.UnlimitedPurchase(fundCode)
	if s.limits != nil {
		limit = s.limits.Get(ctx, fundCode)
	}
	return limits.Validate(limit, total, amount), nil
}

// Statistics summarises the owner's records.
func (s *RecordService) Statistics(ctx context.Context, owner string) (domain.RecordStatistics, error) {
	records, err := s.store.List(ctx, domain.RecordFilter{Owner: owner})
	if err != nil {
		return domain.RecordStatistics{}, err
	}
	return OwnerStatistics(records), nil
}

// AdminStatistics aggregates every owner's records.
func (s *RecordService) AdminStatistics(ctx context.Context) (domain.AdminStatistics, error) {
	records, err := s.store.ListAll(ctx, domain.RecordFilter{})
	if err != nil {
		return domain.AdminStatistics{}, err
	}
	return AggregateStatistics(records), nil
}

func (s *RecordService) resolveDate(date string) (string, error) {
	if date == "" {
		return domain.DateOnly(s.now()).Format(domain.DateLayout), nil
	}
	if _, err := domain.ParseDate(date); err != nil {
		return "", domain.NewValidationError("date", "must be YYYY-MM-DD")
	}
	return date, nil
}

func (s *RecordService) transition(rec domain.ArbitrageRecord) {
	if s.observer != nil {
		s.observer.RecordTransition(string(rec.Type), string(rec.Status))
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
