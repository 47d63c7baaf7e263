// Package limits enforces daily off-exchange subscription caps and looks up
// each fund's cap through the configured providers.
package limits

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// Validate checks a proposed subscription of amount against limit, given the
// owner's subscriptions for the same fund and day so far. It never errors;
// callers turn a rejected check into a domain.LimitExceededError.
func Validate(limit domain.PurchaseLimit, dailyTotal, amount float64) domain.LimitCheck {
	check := domain.LimitCheck{Allowed: true, DailyTotal: dailyTotal}
	if limit.Unlimited() {
		check.Reason = limit.Description
		return check
	}

	ceiling := *limit.LimitAmount
	remaining := math.Max(ceiling-dailyTotal, 0)
	check.Limit = &ceiling
	check.Remaining = &remaining

	switch {
	case amount > ceiling:
		check.Allowed = false
		check.Violation = domain.ViolationSingleAmount
		check.Reason = fmt.Sprintf("单次申购金额超过限购 %s", yuan(ceiling))
	case dailyTotal+amount > ceiling:
		check.Allowed = false
		check.Violation = domain.ViolationDailyCumulative
		check.Reason = fmt.Sprintf("当天累计申购金额将超过限购 %s，剩余可申购 %s", yuan(ceiling), yuan(remaining))
	default:
		check.Reason = fmt.Sprintf("剩余可申购额度：%s", yuan(math.Max(remaining-amount, 0)))
	}
	return check
}

// yuan renders an amount the way fund sites do: 万元 from ten thousand up.
func yuan(v float64) string {
	if v >= 10000 {
		return fmt.Sprintf("%.2f 万元", v/10000)
	}
	return fmt.Sprintf("%.2f 元", v)
}
