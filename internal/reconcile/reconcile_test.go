package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

func q(src string, price float64) domain.Quote {
	return domain.Quote{FundCode: "161725", Price: price, SourceID: src}
}

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func n(src string, nav float64, date string) domain.NavReading {
	return domain.NavReading{FundCode: "161725", Nav: nav, NavDate: day(date), SourceID: src}
}

func TestQuotesNoData(t *testing.T) {
	_, err := Quotes(nil, DefaultOptions())
	assert.ErrorIs(t, err, domain.ErrNoData)

	_, err = Quotes([]domain.Quote{q("sina", 0), q("tencent", 0.005), q("netease", 150)}, DefaultOptions())
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestQuotesSingleSource(t *testing.T) {
	got, err := Quotes([]domain.Quote{q("tencent", 0), q("sina", 1.23)}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1.23, got.Price)
	assert.Equal(t, "sina", got.SourceID)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
	assert.Equal(t, 1, got.ContributingSourceCount)
}

func TestQuotesAgreeingSourcesAreHighConfidence(t *testing.T) {
	got, err := Quotes([]domain.Quote{
		q("eastmoney_stock", 1.000), q("sina", 1.002), q("tencent", 1.004),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
	assert.Equal(t, 3, got.ContributingSourceCount)
	assert.Equal(t, "eastmoney_stock", got.SourceID, "first preferred source in priority order")
}

func TestQuotesOutlierExcluded(t *testing.T) {
	got, err := Quotes([]domain.Quote{
		q("tencent", 1.10), q("eastmoney_arbitrage", 1.000), q("netease", 1.001), q("fundx", 1.002),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "eastmoney_arbitrage", got.SourceID)
	assert.Contains(t, []domain.Confidence{domain.ConfidenceMedium, domain.ConfidenceLow}, got.Confidence)
	assert.Equal(t, 3, got.ContributingSourceCount)

	// No preferred source left: nearest to the upper median wins.
	got, err = Quotes([]domain.Quote{
		q("tencent", 1.10), q("netease", 1.000), q("fundx", 1.003), q("fundy", 1.002),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "fundx", got.SourceID)
	assert.NotEqual(t, 1.10, got.Price)
}

func TestQuotesOutlierRuleNeedsEnoughSources(t *testing.T) {
	got, err := Quotes([]domain.Quote{q("tencent", 1.00), q("netease", 1.10)}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, got.ContributingSourceCount)
	assert.Equal(t, domain.ConfidenceLow, got.Confidence)
	// Upper median of {1.00, 1.10} is 1.10.
	assert.Equal(t, "netease", got.SourceID)
}

func TestQuotesMediumSpread(t *testing.T) {
	got, err := Quotes([]domain.Quote{q("tencent", 1.00), q("netease", 1.02)}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceMedium, got.Confidence)
}

func TestQuotesPreferredOrderFollowsInput(t *testing.T) {
	got, err := Quotes([]domain.Quote{
		q("tencent", 1.000), q("sina", 1.003), q("eastmoney_stock", 1.001),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "sina", got.SourceID)
}

func TestNavsPicksLatestDate(t *testing.T) {
	got, err := Navs([]domain.NavReading{
		n("eastmoney_nav", 1.01, "2026-10-15"),
		n("fundgz", 1.02, "2026-10-16"),
		n("eastmoney_arbitrage", 0, "2026-10-17"),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "fundgz", got.SourceID)
	assert.Equal(t, 1.02, got.Nav)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
	assert.Equal(t, 1, got.ContributingSourceCount)
}

func TestNavsTieBreaksByPriorityAndFlagsDisagreement(t *testing.T) {
	got, err := Navs([]domain.NavReading{
		n("eastmoney_nav", 1.0100, "2026-10-16"),
		n("fundgz", 1.0100, "2026-10-16"),
		n("eastmoney_arbitrage", 1.0100, "2026-10-16"),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "eastmoney_nav", got.SourceID)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
	assert.Equal(t, 3, got.ContributingSourceCount)

	got, err = Navs([]domain.NavReading{
		n("eastmoney_nav", 1.0100, "2026-10-16"),
		n("fundgz", 1.0300, "2026-10-16"),
		n("eastmoney_arbitrage", 0.9000, "2026-10-10"),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "eastmoney_nav", got.SourceID)
	assert.Equal(t, domain.ConfidenceLow, got.Confidence)
	assert.Equal(t, 2, got.ContributingSourceCount)
}

func TestNavsNoData(t *testing.T) {
	_, err := Navs([]domain.NavReading{n("fundgz", 0, "2026-10-16")}, DefaultOptions())
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestDetect(t *testing.T) {
	now := day("2026-10-17").Add(10 * time.Hour)
	opts := DefaultLiquidationOptions()

	quote := func(price float64, c domain.Confidence) *domain.ReconciledQuote {
		return &domain.ReconciledQuote{Quote: domain.Quote{Price: price}, Confidence: c}
	}
	nav := func(v float64, date string) *domain.ReconciledNav {
		return &domain.ReconciledNav{NavReading: domain.NavReading{Nav: v, NavDate: day(date)}, Confidence: domain.ConfidenceHigh}
	}

	tests := []struct {
		name  string
		quote *domain.ReconciledQuote
		nav   *domain.ReconciledNav
		want  Verdict
	}{
		{"no data", nil, nil, Verdict{true, ReasonNoData}},
		{"healthy pair", quote(1.05, domain.ConfidenceHigh), nav(1.00, "2026-10-16"), Verdict{}},
		{"divergent pair", quote(1.60, domain.ConfidenceHigh), nav(1.00, "2026-10-16"), Verdict{true, ReasonDivergence}},
		{"divergence at limit", quote(1.50, domain.ConfidenceHigh), nav(1.00, "2026-10-16"), Verdict{}},
		{"stale nav only", nil, nav(1.00, "2026-09-01"), Verdict{true, ReasonStaleNav}},
		{"thirty day old nav", nil, nav(1.00, "2026-09-17"), Verdict{}},
		{"future nav only", nil, nav(1.00, "2026-10-18"), Verdict{true, ReasonFutureNav}},
		{"fresh nav only", nil, nav(1.00, "2026-10-16"), Verdict{}},
		{"untrusted quote only", quote(1.0, domain.ConfidenceLow), nil, Verdict{true, ReasonUntrustedQuote}},
		{"medium quote only", quote(1.0, domain.ConfidenceMedium), nil, Verdict{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect("161725", tt.quote, tt.nav, now, opts))
		})
	}
}

func TestDetectOverrides(t *testing.T) {
	now := day("2026-10-17")
	opts := DefaultLiquidationOptions()
	opts.ForceDelisted = map[string]bool{"160001": true}
	opts.ForceActive = map[string]bool{"160002": true}

	healthy := &domain.ReconciledQuote{Quote: domain.Quote{Price: 1}, Confidence: domain.ConfidenceHigh}
	assert.Equal(t, Verdict{true, ReasonBlocklist}, Detect("160001", healthy, nil, now, opts))

	untrusted := &domain.ReconciledQuote{Quote: domain.Quote{Price: 1}, Confidence: domain.ConfidenceLow}
	assert.Equal(t, Verdict{false, ReasonAllowlist}, Detect("160002", untrusted, nil, now, opts))
	assert.Equal(t, Verdict{true, ReasonNoData}, Detect("160002", nil, nil, now, opts))
}
