package eastmoney

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

// FundClient reads fund-level data from api.fund.eastmoney.com: the latest
// historical NAV, the fund universe and purchase limits.
type FundClient struct {
	http        *upstream.Client
	fundListURL string
}

// NewFundClient creates a fund data client. fundListURL is the absolute
// location of the fund code search script, which lives on a different host.
func NewFundClient(cfg upstream.Config, fundListURL string) *FundClient {
	return &FundClient{http: upstream.New(cfg), fundListURL: fundListURL}
}

// FetchNav implements domain.NavFetcher using the lsjz history endpoint with
// a page size of one.
func (c *FundClient) FetchNav(ctx context.Context, fundCode string) (domain.NavReading, error) {
	q := url.Values{}
	q.Set("callback", "jQuery")
	q.Set("fundCode", fundCode)
	q.Set("pageIndex", "1")
	q.Set("pageSize", "1")
	q.Set("startDate", "")
	q.Set("endDate", "")
	q.Set("_", strconv.FormatInt(time.Now().UnixMilli(), 10))

	body, err := c.http.Get(ctx, "/f10/lsjz", q)
	if err != nil {
		return domain.NavReading{}, fmt.Errorf("eastmoney/fund: fetch nav %s: %w", fundCode, err)
	}
	payload, err := upstream.StripJSONP(body)
	if err != nil {
		return domain.NavReading{}, fmt.Errorf("eastmoney/fund: fetch nav %s: %w", fundCode, err)
	}

	latest := gjson.GetBytes(payload, "Data.LSJZList.0")
	nav := latest.Get("DWJZ").Float()
	if nav <= 0 {
		return domain.NavReading{}, fmt.Errorf("eastmoney/fund: fetch nav %s: %w", fundCode, domain.ErrNoData)
	}
	date, err := domain.ParseDate(latest.Get("FSRQ").String())
	if err != nil {
		return domain.NavReading{}, fmt.Errorf("eastmoney/fund: fetch nav %s: bad date: %w", fundCode, err)
	}

	return domain.NavReading{
		FundCode:   fundCode,
		Nav:        nav,
		NavDate:    date,
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceNav,
	}, nil
}

// FetchFundList implements domain.FundLister. The script assigns a JS array
// of [code, abbreviation, name, category, pinyin] tuples.
func (c *FundClient) FetchFundList(ctx context.Context) ([]domain.Fund, error) {
	body, err := c.http.GetURL(ctx, c.fundListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("eastmoney/fund: fetch list: %w", err)
	}
	start := bytes.IndexByte(body, '[')
	end := bytes.LastIndexByte(body, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("eastmoney/fund: fetch list: no array in response")
	}

	var funds []domain.Fund
	gjson.ParseBytes(body[start : end+1]).ForEach(func(_, entry gjson.Result) bool {
		fields := entry.Array()
		if len(fields) < 2 {
			return true
		}
		code := fields[0].String()
		if len(code) != 6 {
			return true
		}
		name := fields[1].String()
		if len(fields) > 2 && fields[2].String() != "" {
			name = fields[2].String()
		}
		funds = append(funds, domain.Fund{Code: code, Name: name})
		return true
	})
	return funds, nil
}

// FetchPurchaseLimit implements domain.PurchaseLimitFetcher.
func (c *FundClient) FetchPurchaseLimit(ctx context.Context, fundCode string) (domain.PurchaseLimit, error) {
	q := url.Values{}
	q.Set("fundCode", fundCode)
	q.Set("callback", "jQuery")

	body, err := c.http.Get(ctx, "/f10/F10FundBasicInfo.aspx", q)
	if err != nil {
		return domain.PurchaseLimit{}, fmt.Errorf("eastmoney/fund: fetch limit %s: %w", fundCode, err)
	}
	payload, err := upstream.StripJSONP(body)
	if err != nil {
		return domain.PurchaseLimit{}, fmt.Errorf("eastmoney/fund: fetch limit %s: %w", fundCode, err)
	}
	data := gjson.GetBytes(payload, "Data")
	if !data.IsObject() {
		return domain.PurchaseLimit{}, fmt.Errorf("eastmoney/fund: fetch limit %s: %w", fundCode, domain.ErrNoData)
	}
	return ParsePurchaseLimit(fundCode, data), nil
}
