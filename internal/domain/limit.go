package domain

// PurchaseLimit describes a fund's daily off-exchange subscription cap.
// LimitAmount is nil when the fund is unlimited.
type PurchaseLimit struct {
	FundCode    string   `json:"fund_code"`
	IsLimited   bool     `json:"is_limited"`
	LimitAmount *float64 `json:"limit_amount,omitempty"`
	Description string   `json:"description"`
}

// Unlimited reports whether the limit imposes no cap.
func (p PurchaseLimit) Unlimited() bool {
	return !p.IsLimited || p.LimitAmount == nil
}

// UnlimitedPurchase returns the "no cap" limit for a fund.
func UnlimitedPurchase(fundCode string) PurchaseLimit {
	return PurchaseLimit{FundCode: fundCode, Description: "不限购"}
}

// LimitViolation names which purchase-limit rule rejected a subscription.
type LimitViolation string

const (
	ViolationNone            LimitViolation = ""
	ViolationSingleAmount    LimitViolation = "single_amount"
	ViolationDailyCumulative LimitViolation = "daily_cumulative"
)

// LimitCheck is the outcome of validating a proposed subscription against a
// purchase limit. Remaining is nil for unlimited funds.
type LimitCheck struct {
	Allowed    bool           `json:"allowed"`
	Violation  LimitViolation `json:"violation,omitempty"`
	Limit      *float64       `json:"limit,omitempty"`
	DailyTotal float64        `json:"daily_total"`
	Remaining  *float64       `json:"remaining,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}
