package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

const arbitrageListPath = "/api/fundArbitrage/getFundArbitrageList"

// ArbitrageClient reads the zqhdplus fund arbitrage list, which carries both
// the exchange price and the latest NAV for each listed fund.
type ArbitrageClient struct {
	http *upstream.Client
}

// NewArbitrageClient creates an arbitrage-list client.
func NewArbitrageClient(cfg upstream.Config) *ArbitrageClient {
	return &ArbitrageClient{http: upstream.New(cfg)}
}

// ArbitrageRow is one fund from the arbitrage list.
type ArbitrageRow struct {
	FundCode  string
	Price     float64
	ChangePct float64
	Volume    float64
	Amount    float64
	Nav       float64
	NavDate   time.Time
}

func (c *ArbitrageClient) list(ctx context.Context, fundCode string, pageSize int) ([]gjson.Result, error) {
	q := url.Values{}
	q.Set("pageIndex", "1")
	q.Set("pageSize", strconv.Itoa(pageSize))
	if fundCode != "" {
		q.Set("fundCode", fundCode)
	}
	body, err := c.http.Get(ctx, arbitrageListPath, q)
	if err != nil {
		return nil, err
	}
	return gjson.GetBytes(body, "Data.List").Array(), nil
}

func (c *ArbitrageClient) row(ctx context.Context, fundCode string) (gjson.Result, error) {
	items, err := c.list(ctx, fundCode, 100)
	if err != nil {
		return gjson.Result{}, err
	}
	for _, it := range items {
		if it.Get("FundCode").String() == fundCode {
			return it, nil
		}
	}
	return gjson.Result{}, domain.ErrNoData
}

// FetchPrice implements domain.PriceFetcher.
func (c *ArbitrageClient) FetchPrice(ctx context.Context, fundCode string) (domain.Quote, error) {
	it, err := c.row(ctx, fundCode)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("eastmoney/arbitrage: fetch price %s: %w", fundCode, err)
	}
	r := parseRow(it)
	if r.Price <= 0 {
		return domain.Quote{}, fmt.Errorf("eastmoney/arbitrage: fetch price %s: no price", fundCode)
	}
	return domain.Quote{
		FundCode:   fundCode,
		Price:      r.Price,
		ChangePct:  r.ChangePct,
		Volume:     r.Volume,
		Amount:     r.Amount,
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceArbitrage,
	}, nil
}

// FetchNav implements domain.NavFetcher.
func (c *ArbitrageClient) FetchNav(ctx context.Context, fundCode string) (domain.NavReading, error) {
	it, err := c.row(ctx, fundCode)
	if err != nil {
		return domain.NavReading{}, fmt.Errorf("eastmoney/arbitrage: fetch nav %s: %w", fundCode, err)
	}
	r := parseRow(it)
	if r.Nav <= 0 || r.NavDate.IsZero() {
		return domain.NavReading{}, fmt.Errorf("eastmoney/arbitrage: fetch nav %s: no nav", fundCode)
	}
	return domain.NavReading{
		FundCode:   fundCode,
		Nav:        r.Nav,
		NavDate:    r.NavDate,
		ObservedAt: time.Now().UTC(),
		SourceID:   SourceArbitrage,
	}, nil
}

// FetchAll returns every fund on the first page of the arbitrage list. It
// serves bulk refreshes where one request replaces hundreds.
func (c *ArbitrageClient) FetchAll(ctx context.Context, pageSize int) ([]ArbitrageRow, error) {
	items, err := c.list(ctx, "", pageSize)
	if err != nil {
		return nil, fmt.Errorf("eastmoney/arbitrage: fetch all: %w", err)
	}
	rows := make([]ArbitrageRow, 0, len(items))
	for _, it := range items {
		r := parseRow(it)
		if r.FundCode == "" {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func parseRow(it gjson.Result) ArbitrageRow {
	r := ArbitrageRow{
		FundCode:  it.Get("FundCode").String(),
		Price:     it.Get("MarketPrice").Float(),
		ChangePct: it.Get("ChangePercent").Float(),
		Volume:    it.Get("Volume").Float(),
		Amount:    it.Get("Amount").Float(),
		Nav:       it.Get("NetValue").Float(),
	}
	if d, err := domain.ParseDate(it.Get("NetValueDate").String()); err == nil {
		r.NavDate = d
	}
	return r
}
