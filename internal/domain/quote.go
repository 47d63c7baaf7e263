package domain

import "time"

// Confidence labels how well independent sources agreed on a reading.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Quote is a single exchange price observation from one source.
type Quote struct {
	FundCode   string    `json:"fund_code"`
	Price      float64   `json:"price"`
	ChangePct  float64   `json:"change_pct"`
	Volume     float64   `json:"volume"`
	Amount     float64   `json:"amount"`
	ObservedAt time.Time `json:"observed_at"`
	SourceID   string    `json:"source_id"`
}

// NavReading is a single published net asset value from one source. NavDate
// is the valuation date set by the fund, not the time it was fetched.
type NavReading struct {
	FundCode   string    `json:"fund_code"`
	Nav        float64   `json:"nav"`
	NavDate    time.Time `json:"nav_date"`
	ObservedAt time.Time `json:"observed_at"`
	SourceID   string    `json:"source_id"`
}

// ReconciledQuote is the quote chosen among all sources for one fund.
type ReconciledQuote struct {
	Quote
	Confidence              Confidence `json:"confidence"`
	ContributingSourceCount int        `json:"contributing_source_count"`
}

// ReconciledNav is the NAV reading chosen among all sources for one fund.
type ReconciledNav struct {
	NavReading
	Confidence              Confidence `json:"confidence"`
	ContributingSourceCount int        `json:"contributing_source_count"`
}

// FundSnapshot is the reconciled view of one fund used by the calculator.
type FundSnapshot struct {
	FundCode             string     `json:"fund_code"`
	FundName             string     `json:"fund_name,omitempty"`
	Price                float64    `json:"price,omitempty"`
	Nav                  float64    `json:"nav,omitempty"`
	NavDate              time.Time  `json:"nav_date,omitempty"`
	LiquidationSuspected bool       `json:"liquidation_suspected"`
	LiquidationReason    string     `json:"liquidation_reason,omitempty"`
	QuoteConfidence      Confidence `json:"quote_confidence,omitempty"`
	NavConfidence        Confidence `json:"nav_confidence,omitempty"`
	PriceSource          string     `json:"price_source,omitempty"`
	NavSource            string     `json:"nav_source,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// HasPrice reports whether the snapshot carries a usable exchange price.
func (s FundSnapshot) HasPrice() bool { return s.Price > 0 }

// HasNav reports whether the snapshot carries a usable NAV.
func (s FundSnapshot) HasNav() bool { return s.Nav > 0 }

// DateOnly truncates t to midnight in the China Standard Time zone, which is
// the calendar used for NAV dates and daily subscription totals.
func DateOnly(t time.Time) time.Time {
	t = t.In(ChinaTZ)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ChinaTZ)
}

// ChinaTZ is UTC+8, used for trading calendar dates.
var ChinaTZ = time.FixedZone("CST", 8*60*60)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date in ChinaTZ.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, ChinaTZ)
}
