package reconcile

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// Navs picks the freshest NAV reading. readings must be in provider priority
// order; among readings on the same NAV date the earliest wins. There is no
// outlier filtering: disagreement on the selected date lowers confidence.
func Navs(readings []domain.NavReading, opts Options) (domain.ReconciledNav, error) {
	var (
		best  domain.NavReading
		found bool
	)
	for _, r := range readings {
		if !(r.Nav > 0) {
			continue
		}
		if !found || domain.DateOnly(r.NavDate).After(domain.DateOnly(best.NavDate)) {
			best, found = r, true
		}
	}
	if !found {
		return domain.ReconciledNav{}, fmt.Errorf("reconcile: navs: %w", domain.ErrNoData)
	}

	selected := domain.DateOnly(best.NavDate)
	count := 0
	agree := true
	for _, r := range readings {
		if !(r.Nav > 0) || !domain.DateOnly(r.NavDate).Equal(selected) {
			continue
		}
		count++
		if math.Abs(r.Nav-best.Nav) > opts.NavTolerance {
			agree = false
		}
	}

	conf := domain.ConfidenceHigh
	if !agree {
		conf = domain.ConfidenceLow
	}
	return domain.ReconciledNav{
		NavReading:              best,
		Confidence:              conf,
		ContributingSourceCount: count,
	}, nil
}
