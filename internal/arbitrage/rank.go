package arbitrage

import (
	"sort"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// SortByProfit orders opportunities by profit rate, best first. Equal rates
// are ordered by fund code so batch output is deterministic.
func SortByProfit(opps []domain.ArbitrageOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].ProfitRatePct != opps[j].ProfitRatePct {
			return opps[i].ProfitRatePct > opps[j].ProfitRatePct
		}
		return opps[i].FundCode < opps[j].FundCode
	})
}

// FilterOpportunities returns the entries with HasOpportunity set.
func FilterOpportunities(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	out := make([]domain.ArbitrageOpportunity, 0, len(opps))
	for _, o := range opps {
		if o.HasOpportunity {
			out = append(out, o)
		}
	}
	return out
}
