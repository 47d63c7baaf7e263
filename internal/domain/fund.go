package domain

import "strings"

// Fund identifies a listed fund.
type Fund struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Market is the exchange a fund is listed on.
type Market string

const (
	MarketShenzhen Market = "sz"
	MarketShanghai Market = "sh"
)

// MarketOf infers the listing exchange from a fund code. Codes starting with
// 50 or 51 trade in Shanghai; everything else, including the 16 prefix, is
// treated as Shenzhen.
func MarketOf(code string) Market {
	if strings.HasPrefix(code, "50") || strings.HasPrefix(code, "51") {
		return MarketShanghai
	}
	return MarketShenzhen
}

var lofNameMarkers = []string{"LOF", "lof", "上市型开放式", "上市开放式"}

// IsLOF reports whether a fund from the full fund list is a listed open-end
// fund, judged by code prefix and name.
func IsLOF(f Fund) bool {
	if !(strings.HasPrefix(f.Code, "16") || strings.HasPrefix(f.Code, "50") || strings.HasPrefix(f.Code, "51")) {
		return false
	}
	for _, m := range lofNameMarkers {
		if strings.Contains(f.Name, m) {
			return true
		}
	}
	return false
}
