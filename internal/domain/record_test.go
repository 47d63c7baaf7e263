package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, ChinaTZ)

func newPremium(t *testing.T) ArbitrageRecord {
	t.Helper()
	rec, err := NewArbitrageRecord(NewRecordParams{
		ID:            "rec-1",
		Owner:         "alice",
		FundCode:      "161725",
		FundName:      "招商中证白酒指数(LOF)A",
		Type:          ArbPremium,
		InitialPrice:  1.0,
		InitialAmount: 10000,
		Now:           testNow,
	})
	require.NoError(t, err)
	return rec
}

func TestNewArbitrageRecord(t *testing.T) {
	rec := newPremium(t)

	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, OpSubscribe, rec.InitialOperation.OpType)
	assert.Equal(t, "2024-03-15", rec.InitialOperation.Date)
	assert.InDelta(t, 10000.0, rec.InitialOperation.Shares, 1e-9)
	assert.Nil(t, rec.FinalOperation)
	assert.Nil(t, rec.Profit)
}

func TestNewArbitrageRecordValidation(t *testing.T) {
	base := NewRecordParams{
		Owner: "alice", FundCode: "161725", Type: ArbDiscount,
		InitialPrice: 1, InitialAmount: 100, Now: testNow,
	}

	tests := []struct {
		name  string
		mut   func(p *NewRecordParams)
		field string
	}{
		{"missing fund", func(p *NewRecordParams) { p.FundCode = "" }, "fund_code"},
		{"bad type", func(p *NewRecordParams) { p.Type = "sideways" }, "arbitrage_type"},
		{"zero price", func(p *NewRecordParams) { p.InitialPrice = 0 }, "initial_price"},
		{"negative amount", func(p *NewRecordParams) { p.InitialAmount = -5 }, "initial_amount"},
		{"bad date", func(p *NewRecordParams) { p.InitialDate = "15/03/2024" }, "initial_date"},
		{"missing owner", func(p *NewRecordParams) { p.Owner = " " }, "owner"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mut(&p)
			_, err := NewArbitrageRecord(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCompleteComputesProfit(t *testing.T) {
	rec := newPremium(t)

	err := rec.Complete(CompleteParams{FinalPrice: 1.1, Now: testNow.Add(48 * time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.FinalOperation)
	assert.Equal(t, OpSell, rec.FinalOperation.OpType)
	assert.InDelta(t, 10000.0, rec.FinalOperation.Shares, 1e-9)
	assert.InDelta(t, 11000.0, rec.FinalOperation.Amount, 1e-6)
	assert.Equal(t, "2024-03-17", rec.FinalOperation.Date)
	require.NotNil(t, rec.Profit)
	assert.InDelta(t, 1000.0, *rec.Profit, 1e-6)
	assert.InDelta(t, 10.0, *rec.ProfitRate, 1e-9)
}

func TestCompleteUsesExplicitAmount(t *testing.T) {
	rec := newPremium(t)

	amount := 9500.0
	require.NoError(t, rec.Complete(CompleteParams{FinalPrice: 1.1, FinalAmount: &amount, Now: testNow}))
	assert.InDelta(t, -500.0, *rec.Profit, 1e-9)
	assert.InDelta(t, -5.0, *rec.ProfitRate, 1e-9)
}

func TestCompleteKeepsExplicitZero(t *testing.T) {
	rec := newPremium(t)

	zero := 0.0
	require.NoError(t, rec.Complete(CompleteParams{FinalPrice: 1.1, FinalShares: &zero, FinalAmount: &zero, Now: testNow}))
	assert.Zero(t, rec.FinalOperation.Shares)
	assert.Zero(t, rec.FinalOperation.Amount)
	assert.InDelta(t, -rec.InitialOperation.Amount, *rec.Profit, 1e-9)
	assert.InDelta(t, -100.0, *rec.ProfitRate, 1e-9)
}

func TestCompleteRejectsNegativeAmount(t *testing.T) {
	rec := newPremium(t)

	neg := -1.0
	err := rec.Complete(CompleteParams{FinalPrice: 1.1, FinalAmount: &neg, Now: testNow})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StatusInProgress, rec.Status)
}

func TestCompleteRejectsNonPositivePrice(t *testing.T) {
	rec := newPremium(t)

	err := rec.Complete(CompleteParams{FinalPrice: 0, Now: testNow})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, StatusInProgress, rec.Status)
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	t.Run("complete twice", func(t *testing.T) {
		rec := newPremium(t)
		require.NoError(t, rec.Complete(CompleteParams{FinalPrice: 1.2, Now: testNow}))
		profit := *rec.Profit

		err := rec.Complete(CompleteParams{FinalPrice: 2.0, Now: testNow})
		assert.ErrorIs(t, err, ErrStateConflict)
		assert.Equal(t, profit, *rec.Profit)
	})

	t.Run("cancel then complete", func(t *testing.T) {
		rec := newPremium(t)
		require.NoError(t, rec.Cancel(testNow))

		err := rec.Complete(CompleteParams{FinalPrice: 1.2, Now: testNow})
		var sc *StateConflictError
		require.ErrorAs(t, err, &sc)
		assert.Equal(t, StatusCancelled, sc.Status)
		assert.Nil(t, rec.FinalOperation)
	})

	t.Run("cancel twice", func(t *testing.T) {
		rec := newPremium(t)
		require.NoError(t, rec.Cancel(testNow))
		assert.ErrorIs(t, rec.Cancel(testNow), ErrStateConflict)
	})
}

func TestCountsToward(t *testing.T) {
	rec := newPremium(t)
	assert.True(t, rec.CountsToward("alice", "161725", "2024-03-15"))
	assert.False(t, rec.CountsToward("bob", "161725", "2024-03-15"))
	assert.False(t, rec.CountsToward("alice", "161725", "2024-03-16"))

	require.NoError(t, rec.Cancel(testNow))
	assert.False(t, rec.CountsToward("alice", "161725", "2024-03-15"))

	disc := newPremium(t)
	disc.Type = ArbDiscount
	assert.False(t, disc.CountsToward("alice", "161725", "2024-03-15"))
}

func TestMarketOfAndIsLOF(t *testing.T) {
	assert.Equal(t, MarketShenzhen, MarketOf("161725"))
	assert.Equal(t, MarketShanghai, MarketOf("501018"))
	assert.Equal(t, MarketShanghai, MarketOf("510300"))
	assert.Equal(t, MarketShenzhen, MarketOf("000001"))

	assert.True(t, IsLOF(Fund{Code: "161725", Name: "招商中证白酒指数(LOF)A"}))
	assert.True(t, IsLOF(Fund{Code: "501018", Name: "南方原油上市开放式"}))
	assert.False(t, IsLOF(Fund{Code: "000001", Name: "华夏成长(LOF)"}))
	assert.False(t, IsLOF(Fund{Code: "161000", Name: "某某混合"}))
}
