// Package eastmoney implements the eastmoney market-data sources: the push2
// stock quote API, the fund arbitrage list, historical NAV, the fund code
// search script and the fund basic-info page used for purchase limits.
package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

// Source identifiers reported on quotes and NAV readings.
const (
	SourceStock     = "eastmoney_stock"
	SourceArbitrage = "eastmoney_arbitrage"
	SourceNav       = "eastmoney_nav"
)

const stockFields = "f43,f44,f47,f48,f57,f58,f170"

// StockClient reads real-time exchange quotes from the push2 API.
type StockClient struct {
	http *upstream.Client
}

// NewStockClient creates a push2 quote client.
func NewStockClient(cfg upstream.Config) *StockClient {
	return &StockClient{http: upstream.New(cfg)}
}

// secID builds the push2 security id: 0 for Shenzhen, 1 for Shanghai.
func secID(fundCode string) string {
	if domain.MarketOf(fundCode) == domain.MarketShanghai {
		return "1." + fundCode
	}
	return "0." + fundCode
}

// FetchPrice implements domain.PriceFetcher. With fltt=2 the price fields
// are already decimal yuan.
func (c *StockClient) FetchPrice(ctx context.Context, fundCode string) (domain.Quote, error) {
	q := url.Values{}
	q.Set("secid", secID(fundCode))
	q.Set("fields", stockFields)
	q.Set("fltt", "2")
	q.Set("invt", "2")

	body, err := c.http.Get(ctx, "/api/qt/stock/get", q)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("eastmoney/stock: fetch %s: %w", fundCode, err)
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsObject() {
		return domain.Quote{}, fmt.Errorf("eastmoney/stock: fetch %s: %w", fundCode, domain.ErrNoData)
	}
	price := data.Get("f43").Float()
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("eastmoney/stock: fetch %s: no price", fundCode)
	}

	changePct := data.Get("f170").Float()
	if !data.Get("f170").Exists() {
		if prev := data.Get("f44").Float(); prev > 0 {
			changePct = (price - prev) / prev * 100
		}
	}

	return domain.Quote{
		FundCode:   fundCode,
		Price:      price,
		ChangePct:  changePct,
		Volume:     data.Get("f47").Float(),
		Amount:     data.Get("f48").Float(),
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceStock,
	}, nil
}
