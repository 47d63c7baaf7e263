// Package netease reads exchange quotes from the 126.net JSONP feed. The
// feed is disabled by default because it has been unreliable for years.
package netease

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

const SourceID = "netease"

// Client is a NetEase quote client.
type Client struct {
	http *upstream.Client
}

func New(cfg upstream.Config) *Client {
	return &Client{http: upstream.New(cfg)}
}

// FetchPrice implements domain.PriceFetcher. The response is
// `_ntes_quote_callback({"<symbol>":{"price":..,"percent":..,...}});`.
func (c *Client) FetchPrice(ctx context.Context, fundCode string) (domain.Quote, error) {
	symbol := string(domain.MarketOf(fundCode)) + fundCode
	body, err := c.http.Get(ctx, "/data/feed/"+symbol, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("netease: fetch %s: %w", fundCode, err)
	}
	payload, err := upstream.StripJSONP(body)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("netease: fetch %s: %w", fundCode, err)
	}

	var rec gjson.Result
	gjson.ParseBytes(payload).ForEach(func(_, v gjson.Result) bool {
		if v.Get("price").Exists() {
			rec = v
			return false
		}
		return true
	})
	if !rec.Exists() {
		return domain.Quote{}, fmt.Errorf("netease: fetch %s: %w", fundCode, domain.ErrNoData)
	}
	price := rec.Get("price").Float()
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("netease: fetch %s: no price", fundCode)
	}

	return domain.Quote{
		FundCode:   fundCode,
		Price:      price,
		ChangePct:  rec.Get("percent").Float() * 100,
		Volume:     rec.Get("volume").Float(),
		Amount:     rec.Get("turnover").Float(),
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceID,
	}, nil
}
