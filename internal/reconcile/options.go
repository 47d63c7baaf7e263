// Package reconcile turns per-source quotes and NAV readings into one
// authoritative price and NAV per fund, and flags funds that look delisted.
package reconcile

import "time"

// Options tunes quote and NAV reconciliation. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	// Sanity band: quotes outside (MinPrice, MaxPrice) are discarded.
	MinPrice float64
	MaxPrice float64

	// Quotes deviating from the median by more than OutlierDeviation
	// (fractional) are excluded once at least OutlierMinSources are valid.
	OutlierDeviation  float64
	OutlierMinSources int

	// Spread cut-offs for high and medium confidence.
	HighSpread   float64
	MediumSpread float64

	// NavTolerance is the absolute difference within which same-date NAV
	// readings count as agreeing.
	NavTolerance float64

	// PreferredSources win selection over nearest-to-median.
	PreferredSources []string
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MinPrice:          0.01,
		MaxPrice:          100,
		OutlierDeviation:  0.05,
		OutlierMinSources: 3,
		HighSpread:        0.01,
		MediumSpread:      0.03,
		NavTolerance:      1e-4,
		PreferredSources:  []string{"sina", "eastmoney_stock", "eastmoney_arbitrage"},
	}
}

func (o Options) preferred(sourceID string) bool {
	for _, s := range o.PreferredSources {
		if s == sourceID {
			return true
		}
	}
	return false
}

// LiquidationOptions tunes the delisting heuristic.
type LiquidationOptions struct {
	MaxDivergence float64
	MaxNavAge     time.Duration
	ForceDelisted map[string]bool
	ForceActive   map[string]bool
}

// DefaultLiquidationOptions returns a 50% divergence limit and a 30 day
// staleness window.
func DefaultLiquidationOptions() LiquidationOptions {
	return LiquidationOptions{
		MaxDivergence: 0.5,
		MaxNavAge:     30 * 24 * time.Hour,
	}
}
