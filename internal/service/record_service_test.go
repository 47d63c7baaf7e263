package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/store/memory"
)

type transitionSpy struct {
	seen []string
}

func (s *transitionSpy) RecordTransition(arbType, status string) {
	s.seen = append(s.seen, arbType+":"+status)
}

func newRecordService(limits LimitLookup, observer TransitionObserver) *RecordService {
	svc := NewRecordService(memory.NewRecordStore(), limits, observer, discardLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func premiumInput(owner string, amount float64) CreateRecordInput {
	return CreateRecordInput{
		Owner:         owner,
		FundCode:      "161725",
		FundName:      "招商中证白酒",
		Type:          domain.ArbPremium,
		InitialPrice:  1.0,
		InitialAmount: amount,
	}
}

func TestCreateRecordAssignsTimeOrderedID(t *testing.T) {
	svc := newRecordService(nil, nil)
	id, err := svc.CreateRecord(context.Background(), premiumInput("alice", 1000))
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	rec, err := svc.GetRecord(context.Background(), id, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, rec.Status)
	assert.Equal(t, "2026-10-17", rec.InitialOperation.Date)
}

func TestCreateRecordEnforcesDailyCap(t *testing.T) {
	limits := &mockLimits{}
	limits.On("Get", mock.Anything, "161725").Return(capped("161725", 50000))
	svc := newRecordService(limits, nil)
	ctx := context.Background()

	_, err := svc.CreateRecord(ctx, premiumInput("alice", 40000))
	require.NoError(t, err)

	_, err = svc.CreateRecord(ctx, premiumInput("alice", 15000))
	var exceeded *domain.LimitExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.False(t, exceeded.Check.Allowed)
	assert.Equal(t, domain.ViolationDailyCumulative, exceeded.Check.Violation)
	require.NotNil(t, exceeded.Check.Remaining)
	assert.Equal(t, 10000.0, *exceeded.Check.Remaining)

	// Another owner has an independent cap.
	_, err = svc.CreateRecord(ctx, premiumInput("bob", 15000))
	require.NoError(t, err)

	total, err := svc.GetDailySubscriptionTotal(ctx, "alice", "161725", "")
	require.NoError(t, err)
	assert.Equal(t, 40000.0, total)
}

func TestCreateDiscountRecordSkipsLimits(t *testing.T) {
	limits := &mockLimits{}
	svc := newRecordService(limits, nil)

	in := premiumInput("alice", 1_000_000)
	in.Type = domain.ArbDiscount
	_, err := svc.CreateRecord(context.Background(), in)
	require.NoError(t, err)
	limits.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCreateRecordValidation(t *testing.T) {
	svc := newRecordService(nil, nil)
	in := premiumInput("alice", 0)
	_, err := svc.CreateRecord(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ListRecords(context.Background(), domain.RecordFilter{Owner: "alice", Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordLifecycle(t *testing.T) {
	spy := &transitionSpy{}
	svc := newRecordService(nil, spy)
	ctx := context.Background()

	id, err := svc.CreateRecord(ctx, premiumInput("alice", 1000))
	require.NoError(t, err)

	_, err = svc.CompleteRecord(ctx, CompleteRecordInput{ID: id, Owner: "bob", FinalPrice: 1.1})
	assert.ErrorIs(t, err, domain.ErrNotFound, "other owners cannot see the record")

	rec, err := svc.CompleteRecord(ctx, CompleteRecordInput{ID: id, Owner: "alice", FinalPrice: 1.1})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	require.NotNil(t, rec.Profit)
	assert.InDelta(t, 100.0, *rec.Profit, 1e-9)

	ok, err := svc.CancelRecord(ctx, id, "alice")
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrStateConflict)

	_, err = svc.CompleteRecord(ctx, CompleteRecordInput{ID: id, Owner: "alice", FinalPrice: 2})
	assert.ErrorIs(t, err, domain.ErrStateConflict)
	got, err := svc.GetRecord(ctx, id, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, *got.Profit, 1e-9, "a rejected transition leaves the record unchanged")

	assert.Equal(t, []string{"premium:in_progress", "premium:completed"}, spy.seen)
}

func TestCancelledRecordLeavesCap(t *testing.T) {
	limits := &mockLimits{}
	limits.On("Get", mock.Anything, "161725").Return(capped("161725", 10000))
	svc := newRecordService(limits, nil)
	ctx := context.Background()

	id, err := svc.CreateRecord(ctx, premiumInput("alice", 10000))
	require.NoError(t, err)

	_, err = svc.CreateRecord(ctx, premiumInput("alice", 10000))
	require.ErrorAs(t, err, new(*domain.LimitExceededError))

	ok, err := svc.CancelRecord(ctx, id, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.CreateRecord(ctx, premiumInput("alice", 10000))
	require.NoError(t, err)
}

func TestCheckPurchaseLimit(t *testing.T) {
	limits := &mockLimits{}
	limits.On("Get", mock.Anything, "161725").Return(capped("161725", 10000))
	limits.On("Get", mock.Anything, "160119").Return(domain.UnlimitedPurchase("160119"))
	svc := newRecordService(limits, nil)
	ctx := context.Background()

	_, err := svc.CreateRecord(ctx, premiumInput("alice", 6000))
	require.NoError(t, err)

	check, err := svc.CheckPurchaseLimit(ctx, "alice", "161725", 5000)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, 6000.0, check.DailyTotal)

	check, err = svc.CheckPurchaseLimit(ctx, "alice", "161725", 4000)
	require.NoError(t, err)
	assert.True(t, check.Allowed)

	check, err = svc.CheckPurchaseLimit(ctx, "alice", "160119", 1e9)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Nil(t, check.Remaining)

	_, err = svc.CheckPurchaseLimit(ctx, "alice", "161725", -1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteAndStatistics(t *testing.T) {
	svc := newRecordService(nil, nil)
	ctx := context.Background()

	win, err := svc.CreateRecord(ctx, premiumInput("alice", 1000))
	require.NoError(t, err)
	_, err = svc.CompleteRecord(ctx, CompleteRecordInput{ID: win, Owner: "alice", FinalPrice: 1.1})
	require.NoError(t, err)

	open, err := svc.CreateRecord(ctx, premiumInput("alice", 500))
	require.NoError(t, err)
	_, err = svc.CreateRecord(ctx, premiumInput("bob", 2000))
	require.NoError(t, err)

	st, err := svc.Statistics(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalCount)
	assert.Equal(t, 1, st.InProgressCount)
	assert.Equal(t, 100.0, st.TotalProfit)

	admin, err := svc.AdminStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, admin.TotalRecords)
	assert.Len(t, admin.Owners, 2)

	require.NoError(t, svc.DeleteRecord(ctx, open, "alice"))
	assert.ErrorIs(t, svc.DeleteRecord(ctx, open, "alice"), domain.ErrNotFound)
}
