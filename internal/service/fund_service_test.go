package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/reconcile"
	"github.com/alanyoungcy/lofbot/internal/source"
)

var testNow = time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

var testFees = domain.FeeSchedule{
	BuyCommission:  0.0003,
	SellCommission: 0.0003,
	SubscribeFee:   0.015,
	RedeemFee:      0.005,
	StampTax:       0.001,
}

var testThresholds = domain.Thresholds{MinPriceDiff: 0.01, MinProfitRate: 0.005}

// fakeMarket serves fixed readings; codes absent from a map have no data.
type fakeMarket struct {
	mu     sync.Mutex
	prices map[string]float64
	navs   map[string]float64
	calls  int
	onCall func()
}

func (f *fakeMarket) hit() {
	f.mu.Lock()
	f.calls++
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (f *fakeMarket) Quote(_ context.Context, code string) (domain.ReconciledQuote, error) {
	f.hit()
	p, ok := f.prices[code]
	if !ok {
		return domain.ReconciledQuote{}, domain.ErrNoData
	}
	return domain.ReconciledQuote{
		Quote:      domain.Quote{FundCode: code, Price: p, SourceID: "sina"},
		Confidence: domain.ConfidenceHigh,
	}, nil
}

func (f *fakeMarket) Nav(_ context.Context, code string) (domain.ReconciledNav, error) {
	f.hit()
	n, ok := f.navs[code]
	if !ok {
		return domain.ReconciledNav{}, domain.ErrNoData
	}
	return domain.ReconciledNav{
		NavReading: domain.NavReading{FundCode: code, Nav: n, NavDate: domain.DateOnly(testNow), SourceID: "eastmoney"},
		Confidence: domain.ConfidenceMedium,
	}, nil
}

type mockLimits struct {
	mock.Mock
}

func (m *mockLimits) Get(ctx context.Context, fundCode string) domain.PurchaseLimit {
	args := m.Called(ctx, fundCode)
	return args.Get(0).(domain.PurchaseLimit)
}

type fakeLister struct {
	funds []domain.Fund
	err   error
}

func (f fakeLister) FetchFundList(context.Context) ([]domain.Fund, error) {
	return f.funds, f.err
}

func capped(code string, amount float64) domain.PurchaseLimit {
	return domain.PurchaseLimit{FundCode: code, IsLimited: true, LimitAmount: &amount, Description: "限购"}
}

func newFundService(market MarketData, limits LimitLookup, sources *source.Set, cfg FundConfig) *FundService {
	if sources == nil {
		sources = source.NewSet()
	}
	cfg.Fees = testFees
	cfg.Thresholds = testThresholds
	if cfg.Liquidation.MaxDivergence == 0 {
		cfg.Liquidation = reconcile.DefaultLiquidationOptions()
	}
	svc := NewFundService(market, sources, limits, nil, nil, cfg, discardLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestGetFundSnapshot(t *testing.T) {
	market := &fakeMarket{
		prices: map[string]float64{"161725": 1.10, "160119": 2.0, "501018": 0.9},
		navs:   map[string]float64{"161725": 1.00, "160119": 1.0},
	}
	svc := newFundService(market, nil, nil, FundConfig{Funds: map[string]string{"161725": "招商中证白酒"}})
	ctx := context.Background()

	snap, err := svc.GetFundSnapshot(ctx, "161725")
	require.NoError(t, err)
	assert.Equal(t, "招商中证白酒", snap.FundName)
	assert.Equal(t, 1.10, snap.Price)
	assert.Equal(t, 1.00, snap.Nav)
	assert.Equal(t, "sina", snap.PriceSource)
	assert.Equal(t, "eastmoney", snap.NavSource)
	assert.False(t, snap.LiquidationSuspected)

	snap, err = svc.GetFundSnapshot(ctx, "160119")
	require.NoError(t, err)
	assert.True(t, snap.LiquidationSuspected)
	assert.Equal(t, reconcile.ReasonDivergence, snap.LiquidationReason)

	// A quote alone is still a snapshot.
	snap, err = svc.GetFundSnapshot(ctx, "501018")
	require.NoError(t, err)
	assert.Equal(t, 0.9, snap.Price)
	assert.Zero(t, snap.Nav)

	_, err = svc.GetFundSnapshot(ctx, "000000")
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestGetArbitrageOpportunity(t *testing.T) {
	market := &fakeMarket{
		prices: map[string]float64{"161725": 1.10, "160119": 2.0, "501018": 0.9},
		navs:   map[string]float64{"161725": 1.00, "160119": 1.0},
	}
	svc := newFundService(market, nil, nil, FundConfig{Funds: map[string]string{"161725": "招商中证白酒"}})
	ctx := context.Background()

	opp, err := svc.GetArbitrageOpportunity(ctx, "161725")
	require.NoError(t, err)
	assert.Equal(t, "161725", opp.FundCode)
	assert.Equal(t, "招商中证白酒", opp.FundName)
	assert.Equal(t, domain.ArbPremium, opp.Type)
	assert.True(t, opp.HasOpportunity)
	assert.InDelta(t, 8.21, opp.ProfitRatePct, 0.001)
	require.NotNil(t, opp.NavDate)

	_, err = svc.GetArbitrageOpportunity(ctx, "160119")
	assert.ErrorIs(t, err, domain.ErrNoData, "liquidated funds have no opportunity")

	_, err = svc.GetArbitrageOpportunity(ctx, "501018")
	assert.ErrorIs(t, err, domain.ErrNoData, "a missing NAV has no opportunity")
}

func TestScreenFundsRanksAndAnnotatesLimits(t *testing.T) {
	market := &fakeMarket{
		prices: map[string]float64{"161725": 1.10, "160119": 0.95, "501018": 1.001, "163402": 2.0},
		navs:   map[string]float64{"161725": 1.00, "160119": 1.00, "501018": 1.000, "163402": 1.0},
	}
	limits := &mockLimits{}
	limits.On("Get", mock.Anything, "161725").Return(capped("161725", 100)).Once()
	svc := newFundService(market, limits, nil, FundConfig{Workers: 2})

	results, err := svc.ScreenFunds(context.Background(), []string{"161725", "160119", "501018", "163402", "000000"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "161725", results[0].FundCode)
	assert.Equal(t, "160119", results[1].FundCode)
	assert.Equal(t, "501018", results[2].FundCode)
	assert.False(t, results[2].HasOpportunity)

	require.NotNil(t, results[0].PurchaseLimit)
	assert.True(t, results[0].PurchaseLimit.IsLimited)
	assert.Nil(t, results[1].PurchaseLimit, "discount opportunities carry no limit")
	limits.AssertExpectations(t)
}

func TestScreenFundsCancelledReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	market := &fakeMarket{
		prices: map[string]float64{"161725": 1.10, "160119": 0.95, "501018": 1.05},
		navs:   map[string]float64{"161725": 1.00, "160119": 1.00, "501018": 1.00},
		onCall: cancel,
	}
	svc := newFundService(market, nil, nil, FundConfig{Workers: 1})

	results, err := svc.ScreenFunds(ctx, []string{"161725", "160119", "501018"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
}

func TestScreenFundsAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	market := &fakeMarket{prices: map[string]float64{"161725": 1.1}, navs: map[string]float64{"161725": 1}}
	svc := newFundService(market, nil, nil, FundConfig{})

	results, err := svc.ScreenFunds(ctx, []string{"161725"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Zero(t, market.calls)
}

func TestListFundsMergesUpstream(t *testing.T) {
	sources := source.NewSet(
		source.Provider{ID: "broken", Priority: 1, Enabled: true, Impl: fakeLister{err: errors.New("boom")}},
		source.Provider{ID: "eastmoney", Priority: 2, Enabled: true, Impl: fakeLister{funds: []domain.Fund{
			{Code: "161725", Name: "upstream name"},
			{Code: "160119", Name: "南方中证500ETF联接(LOF)A"},
			{Code: "000001", Name: "华夏成长混合"},
		}}},
	)
	cfg := FundConfig{
		Funds:           map[string]string{"161725": "招商中证白酒", "501018": "南方原油"},
		IncludeUpstream: true,
	}
	svc := newFundService(&fakeMarket{}, nil, sources, cfg)

	funds, err := svc.ListFunds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Fund{
		{Code: "160119", Name: "南方中证500ETF联接(LOF)A"},
		{Code: "161725", Name: "招商中证白酒"},
		{Code: "501018", Name: "南方原油"},
	}, funds)

	codes, err := svc.FundCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"160119", "161725", "501018"}, codes)
}

func TestListFundsUpstreamFailureDegrades(t *testing.T) {
	sources := source.NewSet(source.Provider{ID: "eastmoney", Enabled: true, Impl: fakeLister{err: errors.New("down")}})
	svc := newFundService(&fakeMarket{}, nil, sources, FundConfig{
		Funds:           map[string]string{"161725": "招商中证白酒"},
		IncludeUpstream: true,
	})

	funds, err := svc.ListFunds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Fund{{Code: "161725", Name: "招商中证白酒"}}, funds)
}

func TestGetPurchaseLimitWithoutLookup(t *testing.T) {
	svc := newFundService(&fakeMarket{}, nil, nil, FundConfig{})
	limit := svc.GetPurchaseLimit(context.Background(), "161725")
	assert.True(t, limit.Unlimited())
}
