// Package tencent reads real-time exchange quotes from qt.gtimg.cn.
package tencent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

const SourceID = "tencent"

// Client is a Tencent quote client.
type Client struct {
	http *upstream.Client
}

func New(cfg upstream.Config) *Client {
	cfg.Referer = "http://qq.com"
	return &Client{http: upstream.New(cfg)}
}

// FetchPrice implements domain.PriceFetcher. Records are `~` separated:
// market~name~code~price~prev_close~open~volume~amount~...
func (c *Client) FetchPrice(ctx context.Context, fundCode string) (domain.Quote, error) {
	symbol := string(domain.MarketOf(fundCode)) + fundCode
	body, err := c.http.Get(ctx, "/q="+symbol, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("tencent: fetch %s: %w", fundCode, err)
	}
	body, err = upstream.DecodeGBK(body)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("tencent: fetch %s: %w", fundCode, err)
	}
	payload, ok := upstream.QuotedAssignment(body)
	if !ok {
		return domain.Quote{}, fmt.Errorf("tencent: fetch %s: %w", fundCode, domain.ErrNoData)
	}

	parts := strings.Split(payload, "~")
	if len(parts) < 5 {
		return domain.Quote{}, fmt.Errorf("tencent: fetch %s: short record (%d fields)", fundCode, len(parts))
	}
	price := num(parts, 3)
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("tencent: fetch %s: no price", fundCode)
	}
	var changePct float64
	if prev := num(parts, 4); prev > 0 {
		changePct = (price - prev) / prev * 100
	}

	return domain.Quote{
		FundCode:   fundCode,
		Price:      price,
		ChangePct:  changePct,
		Volume:     num(parts, 6),
		Amount:     num(parts, 7),
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceID,
	}, nil
}

func num(parts []string, i int) float64 {
	if i >= len(parts) {
		return 0
	}
	v, _ := strconv.ParseFloat(parts[i], 64)
	return v
}
