// Package sina reads real-time exchange quotes from the Sina hq feed.
package sina

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

// SourceID identifies quotes from this feed.
const SourceID = "sina"

// Referer is required by the feed; requests without it are rejected.
const Referer = "http://finance.sina.com.cn"

// Client is a Sina hq quote client.
type Client struct {
	http *upstream.Client
}

// New creates a client. The Referer header is always set.
func New(cfg upstream.Config) *Client {
	cfg.Referer = Referer
	return &Client{http: upstream.New(cfg)}
}

// FetchPrice implements domain.PriceFetcher. The feed answers with a GBK
// encoded `var hq_str_sz161725="name,open,prev,price,high,low,...";` line.
func (c *Client) FetchPrice(ctx context.Context, fundCode string) (domain.Quote, error) {
	symbol := string(domain.MarketOf(fundCode)) + fundCode
	body, err := c.http.Get(ctx, "/list="+symbol, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("sina: fetch %s: %w", fundCode, err)
	}
	body, err = upstream.DecodeGBK(body)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("sina: fetch %s: %w", fundCode, err)
	}
	payload, ok := upstream.QuotedAssignment(body)
	if !ok {
		return domain.Quote{}, fmt.Errorf("sina: fetch %s: %w", fundCode, domain.ErrNoData)
	}

	parts := strings.Split(payload, ",")
	if len(parts) < 4 {
		return domain.Quote{}, fmt.Errorf("sina: fetch %s: short record (%d fields)", fundCode, len(parts))
	}
	price := field(parts, 3)
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("sina: fetch %s: no price", fundCode)
	}

	var changePct float64
	if prev := field(parts, 2); prev > 0 {
		changePct = (price - prev) / prev * 100
	}
	return domain.Quote{
		FundCode:   fundCode,
		Price:      price,
		ChangePct:  changePct,
		Volume:     field(parts, 8),
		Amount:     field(parts, 9),
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceID,
	}, nil
}

func field(parts []string, i int) float64 {
	if i >= len(parts) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
	if err != nil {
		return 0
	}
	return v
}
