// Package fundgz reads the last published NAV from the fundgz estimate
// script. Only the confirmed NAV (dwjz/jzrq) is used; the intraday estimate
// is ignored.
package fundgz

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

const SourceID = "fundgz"

type Client struct {
	http *upstream.Client
}

func New(cfg upstream.Config) *Client {
	return &Client{http: upstream.New(cfg)}
}

// FetchNav implements domain.NavFetcher.
func (c *Client) FetchNav(ctx context.Context, fundCode string) (domain.NavReading, error) {
	body, err := c.http.Get(ctx, "/js/"+fundCode+".js", nil)
	if err != nil {
		return domain.NavReading{}, fmt.Errorf("fundgz: fetch %s: %w", fundCode, err)
	}
	payload, err := upstream.StripJSONP(body)
	if err != nil {
		return domain.NavReading{}, fmt.Errorf("fundgz: fetch %s: %w", fundCode, err)
	}
	// An unknown fund answers with `jsonpgz();`.
	if len(payload) == 0 {
		return domain.NavReading{}, fmt.Errorf("fundgz: fetch %s: %w", fundCode, domain.ErrNoData)
	}

	doc := gjson.ParseBytes(payload)
	nav := doc.Get("dwjz").Float()
	if nav <= 0 {
		return domain.NavReading{}, fmt.Errorf("fundgz: fetch %s: no nav", fundCode)
	}
	date, err := domain.ParseDate(doc.Get("jzrq").String())
	if err != nil {
		return domain.NavReading{}, fmt.Errorf("fundgz: fetch %s: bad date: %w", fundCode, err)
	}

	return domain.NavReading{
		FundCode:   fundCode,
		Nav:        nav,
		NavDate:    date,
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceID,
	}, nil
}
