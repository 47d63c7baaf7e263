package reconcile

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// Quotes picks one quote from per-source observations. quotes must be in
// provider priority order; that order breaks every tie. It returns
// domain.ErrNoData when no quote survives the sanity band.
func Quotes(quotes []domain.Quote, opts Options) (domain.ReconciledQuote, error) {
	valid := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Price > 0 && q.Price > opts.MinPrice && q.Price < opts.MaxPrice {
			valid = append(valid, q)
		}
	}

	switch len(valid) {
	case 0:
		return domain.ReconciledQuote{}, fmt.Errorf("reconcile: quotes: %w", domain.ErrNoData)
	case 1:
		return domain.ReconciledQuote{
			Quote:                   valid[0],
			Confidence:              domain.ConfidenceHigh,
			ContributingSourceCount: 1,
		}, nil
	}

	prices := make([]float64, len(valid))
	for i, q := range valid {
		prices[i] = q.Price
	}
	median := upperMedian(prices)

	remaining := valid
	if len(valid) >= opts.OutlierMinSources && median > 0 {
		remaining = make([]domain.Quote, 0, len(valid))
		for _, q := range valid {
			if math.Abs(q.Price-median)/median <= opts.OutlierDeviation {
				remaining = append(remaining, q)
			}
		}
		// The median itself always survives, so remaining is never empty.
	}

	return domain.ReconciledQuote{
		Quote:                   selectQuote(remaining, median, opts),
		Confidence:              spreadConfidence(prices, opts),
		ContributingSourceCount: len(remaining),
	}, nil
}

func selectQuote(candidates []domain.Quote, median float64, opts Options) domain.Quote {
	for _, q := range candidates {
		if opts.preferred(q.SourceID) {
			return q
		}
	}
	best := candidates[0]
	bestDiff := math.Abs(best.Price - median)
	for _, q := range candidates[1:] {
		if d := math.Abs(q.Price - median); d < bestDiff {
			best, bestDiff = q, d
		}
	}
	return best
}

// spreadConfidence grades (max-min)/mean over every band-valid price.
func spreadConfidence(prices []float64, opts Options) domain.Confidence {
	mean := stat.Mean(prices, nil)
	if mean <= 0 {
		return domain.ConfidenceLow
	}
	spread := (floats.Max(prices) - floats.Min(prices)) / mean
	switch {
	case spread < opts.HighSpread:
		return domain.ConfidenceHigh
	case spread < opts.MediumSpread:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// upperMedian returns sorted[n/2], which for an even count is the upper of
// the two middle values.
func upperMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}
