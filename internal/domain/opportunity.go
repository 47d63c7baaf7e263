package domain

import "time"

// ArbType is the direction of an arbitrage.
type ArbType string

const (
	// ArbPremium: exchange price above NAV. Subscribe off-exchange, sell on-exchange.
	ArbPremium ArbType = "premium"
	// ArbDiscount: exchange price below NAV. Buy on-exchange, redeem off-exchange.
	ArbDiscount ArbType = "discount"
)

// Valid reports whether t is a known arbitrage type.
func (t ArbType) Valid() bool {
	return t == ArbPremium || t == ArbDiscount
}

// FeeSchedule holds fractional trading costs (0.0003 = 0.03%).
type FeeSchedule struct {
	BuyCommission  float64 `json:"buy_commission"`
	SellCommission float64 `json:"sell_commission"`
	SubscribeFee   float64 `json:"subscribe_fee"`
	RedeemFee      float64 `json:"redeem_fee"`
	StampTax       float64 `json:"stamp_tax"`
}

// Thresholds gate whether a computed spread counts as an opportunity.
// MinProfitRate is fractional (0.005 = 0.5%).
type Thresholds struct {
	MinPriceDiff  float64 `json:"min_price_diff"`
	MinProfitRate float64 `json:"min_profit_rate"`
}

// ArbitrageOpportunity is the calculator's verdict for one (price, NAV) pair.
type ArbitrageOpportunity struct {
	FundCode             string         `json:"fund_code"`
	FundName             string         `json:"fund_name,omitempty"`
	Price                float64        `json:"price"`
	Nav                  float64        `json:"nav"`
	NavDate              *time.Time     `json:"nav_date,omitempty"`
	PriceDiff            float64        `json:"price_diff"`
	PriceDiffPct         float64        `json:"price_diff_pct"`
	Type                 ArbType        `json:"type"`
	OperationDescription string         `json:"operation"`
	TotalCostRatePct     float64        `json:"total_cost_rate_pct"`
	ProfitRatePct        float64        `json:"profit_rate_pct"`
	NetProfitOn10k       float64        `json:"net_profit_on_10k"`
	HasOpportunity       bool           `json:"has_opportunity"`
	PurchaseLimit        *PurchaseLimit `json:"purchase_limit,omitempty"`
	CalculatedAt         time.Time      `json:"calculated_at"`
}
