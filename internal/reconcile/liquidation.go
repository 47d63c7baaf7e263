package reconcile

import (
	"math"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// Liquidation reasons.
const (
	ReasonNoData         = "no_data"
	ReasonDivergence     = "divergence"
	ReasonStaleNav       = "stale_nav"
	ReasonFutureNav      = "future_nav"
	ReasonUntrustedQuote = "untrusted_quote"
	ReasonBlocklist      = "blocklist"
	ReasonAllowlist      = "allowlist"
)

// Verdict is the liquidation detector's answer for one fund.
type Verdict struct {
	Liquidated bool
	Reason     string
}

// Detect applies the delisting heuristic. Either input may be nil when the
// corresponding reconciliation produced no data. Rules run in order and the
// first match wins; funds on the allowlist only fail the no-data rule.
func Detect(fundCode string, quote *domain.ReconciledQuote, nav *domain.ReconciledNav, now time.Time, opts LiquidationOptions) Verdict {
	if quote == nil && nav == nil {
		return Verdict{Liquidated: true, Reason: ReasonNoData}
	}
	if opts.ForceDelisted[fundCode] {
		return Verdict{Liquidated: true, Reason: ReasonBlocklist}
	}
	if opts.ForceActive[fundCode] {
		return Verdict{Reason: ReasonAllowlist}
	}

	switch {
	case quote != nil && nav != nil:
		if nav.Nav > 0 && math.Abs(quote.Price-nav.Nav)/nav.Nav > opts.MaxDivergence {
			return Verdict{Liquidated: true, Reason: ReasonDivergence}
		}
	case nav != nil:
		today := domain.DateOnly(now)
		navDate := domain.DateOnly(nav.NavDate)
		if navDate.After(today) {
			return Verdict{Liquidated: true, Reason: ReasonFutureNav}
		}
		if today.Sub(navDate) > opts.MaxNavAge {
			return Verdict{Liquidated: true, Reason: ReasonStaleNav}
		}
	case quote != nil:
		if quote.Confidence == domain.ConfidenceLow {
			return Verdict{Liquidated: true, Reason: ReasonUntrustedQuote}
		}
	}
	return Verdict{}
}
