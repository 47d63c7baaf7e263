// Package arbitrage turns a reconciled (price, NAV) pair into a cost-adjusted
// profit estimate and an opportunity verdict.
package arbitrage

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// Investment is the notional amount every opportunity is simulated with.
const Investment = 10000.0

const (
	premiumOperation  = "场外申购 → 场内卖出"
	discountOperation = "场内买入 → 场外赎回"
)

// Calculate evaluates the arbitrage between an exchange price and a NAV. It
// returns false when either input is missing or non-positive. All arithmetic
// runs on unrounded values; rounding happens only on the returned fields.
func Calculate(price, nav float64, fees domain.FeeSchedule, th domain.Thresholds) (domain.ArbitrageOpportunity, bool) {
	if !(price > 0) || !(nav > 0) || math.IsInf(price, 0) || math.IsInf(nav, 0) {
		return domain.ArbitrageOpportunity{}, false
	}

	diff := price - nav
	diffPct := diff / nav * 100

	var (
		arbType   domain.ArbType
		operation string
		costRate  float64
		final     float64
	)
	if price > nav {
		arbType = domain.ArbPremium
		operation = premiumOperation
		sellCost := fees.SellCommission + fees.StampTax
		costRate = fees.SubscribeFee + sellCost
		shares := Investment * (1 - fees.SubscribeFee) / nav
		final = shares * price * (1 - sellCost)
	} else {
		arbType = domain.ArbDiscount
		operation = discountOperation
		costRate = fees.BuyCommission + fees.RedeemFee
		shares := Investment * (1 - fees.BuyCommission) / price
		final = shares * nav * (1 - fees.RedeemFee)
	}

	netProfit := final - Investment
	profitRatePct := netProfit / Investment * 100

	return domain.ArbitrageOpportunity{
		Price:                price,
		Nav:                  nav,
		PriceDiff:            round(diff, 4),
		PriceDiffPct:         round(diffPct, 2),
		Type:                 arbType,
		OperationDescription: operation,
		TotalCostRatePct:     round(costRate*100, 2),
		ProfitRatePct:        round(profitRatePct, 2),
		NetProfitOn10k:       round(netProfit, 2),
		HasOpportunity:       qualifies(diff, profitRatePct, th),
		CalculatedAt:         time.Now().UTC(),
	}, true
}

// qualifies applies the opportunity thresholds to unrounded values.
func qualifies(diff, profitRatePct float64, th domain.Thresholds) bool {
	return math.Abs(diff) >= th.MinPriceDiff && profitRatePct >= th.MinProfitRate*100
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
