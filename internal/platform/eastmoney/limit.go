package eastmoney

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// limitFields are the basic-info keys that have been seen carrying the daily
// subscription cap, in lookup order.
var limitFields = []string{
	"PURCHASELIMIT",
	"PurchaseLimit",
	"MaxPurchaseAmount",
	"PURCHASE_LIMIT",
	"SUBSCRIBE_LIMIT",
	"申购限额",
	"限购",
	"LimitAmount",
}

// ParsePurchaseLimit reads the first populated limit field from a fund
// basic-info object. Missing, zero and unparseable values mean unlimited.
func ParsePurchaseLimit(fundCode string, data gjson.Result) domain.PurchaseLimit {
	for _, f := range limitFields {
		v := data.Get(f)
		if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
			continue
		}
		amount, ok := parseLimitAmount(v)
		if !ok || amount <= 0 {
			return domain.UnlimitedPurchase(fundCode)
		}
		return domain.PurchaseLimit{
			FundCode:    fundCode,
			IsLimited:   true,
			LimitAmount: &amount,
			Description: describeLimit(amount),
		}
	}
	return domain.UnlimitedPurchase(fundCode)
}

// parseLimitAmount accepts numbers and text such as "1,000", "10万" or
// "5千元".
func parseLimitAmount(v gjson.Result) (float64, bool) {
	if v.Type == gjson.Number {
		return v.Float(), true
	}

	s := strings.TrimSpace(v.String())
	s = strings.NewReplacer(",", "", "，", "", " ", "").Replace(s)
	s = strings.TrimSuffix(s, "元")

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "万"), strings.HasSuffix(s, "萬"):
		multiplier = 10000
		s = strings.TrimSuffix(strings.TrimSuffix(s, "万"), "萬")
	case strings.HasSuffix(s, "千"):
		multiplier = 1000
		s = strings.TrimSuffix(s, "千")
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n * multiplier, true
}

func describeLimit(amount float64) string {
	return fmt.Sprintf("限购 %s 元", strconv.FormatFloat(amount, 'f', -1, 64))
}
