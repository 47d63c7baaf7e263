package service

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// OwnerStatistics summarises one owner's records. Profit figures cover
// completed records only; money and rates are rounded to 2dp.
func OwnerStatistics(records []domain.ArbitrageRecord) domain.RecordStatistics {
	var (
		st         domain.RecordStatistics
		profit     = decimal.Zero
		investment = decimal.Zero
		rateSum    = decimal.Zero
	)
	for _, r := range records {
		switch r.Status {
		case domain.StatusInProgress:
			st.InProgressCount++
		case domain.StatusCompleted:
			st.TotalCount++
			investment = investment.Add(decimal.NewFromFloat(r.InitialOperation.Amount))
			if r.Profit != nil {
				profit = profit.Add(decimal.NewFromFloat(*r.Profit))
				switch {
				case *r.Profit > 0:
					st.ProfitableCount++
				case *r.Profit < 0:
					st.LossCount++
				}
			}
			if r.ProfitRate != nil {
				rateSum = rateSum.Add(decimal.NewFromFloat(*r.ProfitRate))
			}
		}
	}

	st.TotalProfit = round2(profit)
	st.TotalInvestment = round2(investment)
	st.TotalReturnRate = round2(percent(profit, investment))
	if st.TotalCount > 0 {
		n := decimal.NewFromInt(int64(st.TotalCount))
		st.WinRate = round2(percent(decimal.NewFromInt(int64(st.ProfitableCount)), n))
		st.AvgProfitRate = round2(rateSum.Div(n))
	}
	return st
}

// AggregateStatistics builds the admin report across owners. Every record
// contributes its initial amount; profit comes from settled records.
func AggregateStatistics(records []domain.ArbitrageRecord) domain.AdminStatistics {
	type acc struct {
		stats  domain.OwnerStatistics
		profit decimal.Decimal
		amount decimal.Decimal
	}
	owners := map[string]*acc{}
	profit, amount := decimal.Zero, decimal.Zero
	var out domain.AdminStatistics

	for _, r := range records {
		out.TotalRecords++
		a, ok := owners[r.Owner]
		if !ok {
			a = &acc{profit: decimal.Zero, amount: decimal.Zero}
			owners[r.Owner] = a
		}
		a.stats.TotalRecords++

		switch r.Status {
		case domain.StatusCompleted:
			out.TotalCompleted++
			a.stats.Completed++
		case domain.StatusInProgress:
			out.TotalInProgress++
			a.stats.InProgress++
		case domain.StatusCancelled:
			out.TotalCancelled++
			a.stats.Cancelled++
		case domain.StatusPending:
			out.TotalPending++
			a.stats.Pending++
		}

		amt := decimal.NewFromFloat(r.InitialOperation.Amount)
		amount = amount.Add(amt)
		a.amount = a.amount.Add(amt)
		if r.Profit != nil {
			p := decimal.NewFromFloat(*r.Profit)
			profit = profit.Add(p)
			a.profit = a.profit.Add(p)
		}
	}

	out.TotalProfit = round2(profit)
	out.TotalAmount = round2(amount)
	out.OverallProfitRate = round2(percent(profit, amount))
	out.Owners = make(map[string]domain.OwnerStatistics, len(owners))
	for owner, a := range owners {
		a.stats.TotalProfit = round2(a.profit)
		a.stats.TotalAmount = round2(a.amount)
		a.stats.ProfitRate = round2(percent(a.profit, a.amount))
		out.Owners[owner] = a.stats
	}
	return out
}

// percent returns part/whole×100, or zero when whole is not positive.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
