package eastmoney

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

func serve(t *testing.T, h http.HandlerFunc) upstream.Config {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return upstream.Config{BaseURL: srv.URL}
}

func TestStockFetchPrice(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/qt/stock/get", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("fltt"))
		switch r.URL.Query().Get("secid") {
		case "0.161725":
			_, _ = w.Write([]byte(`{"rc":0,"data":{"f43":1.234,"f44":1.2,"f47":15230,"f48":1879000.5,"f170":2.83}}`))
		case "1.501018":
			_, _ = w.Write([]byte(`{"rc":0,"data":{"f43":"-","f44":1.1}}`))
		default:
			_, _ = w.Write([]byte(`{"rc":0,"data":null}`))
		}
	})
	c := NewStockClient(cfg)

	q, err := c.FetchPrice(context.Background(), "161725")
	require.NoError(t, err)
	assert.Equal(t, 1.234, q.Price)
	assert.Equal(t, 2.83, q.ChangePct)
	assert.Equal(t, 15230.0, q.Volume)
	assert.Equal(t, SourceStock, q.SourceID)

	_, err = c.FetchPrice(context.Background(), "501018")
	assert.Error(t, err)

	_, err = c.FetchPrice(context.Background(), "160000")
	assert.ErrorIs(t, err, domain.ErrNoData)
}

const arbitrageList = `{"Data":{"List":[
	{"FundCode":"161725","MarketPrice":"1.050","NetValue":1.0012,"NetValueDate":"2026-10-16","ChangePercent":0.5,"Volume":100,"Amount":105},
	{"FundCode":"501018","MarketPrice":0,"NetValue":"0.9800","NetValueDate":"2026-10-15"}
]}}`

func TestArbitrageFetchPriceAndNav(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, arbitrageListPath, r.URL.Path)
		_, _ = w.Write([]byte(arbitrageList))
	})
	c := NewArbitrageClient(cfg)
	ctx := context.Background()

	q, err := c.FetchPrice(ctx, "161725")
	require.NoError(t, err)
	assert.Equal(t, 1.05, q.Price)
	assert.Equal(t, SourceArbitrage, q.SourceID)

	n, err := c.FetchNav(ctx, "161725")
	require.NoError(t, err)
	assert.Equal(t, 1.0012, n.Nav)
	assert.Equal(t, "2026-10-16", n.NavDate.Format(domain.DateLayout))

	_, err = c.FetchPrice(ctx, "501018")
	assert.Error(t, err, "zero market price is not a quote")

	n, err = c.FetchNav(ctx, "501018")
	require.NoError(t, err)
	assert.Equal(t, 0.98, n.Nav)

	_, err = c.FetchNav(ctx, "999999")
	assert.ErrorIs(t, err, domain.ErrNoData)

	rows, err := c.FetchAll(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFundFetchNav(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/f10/lsjz", r.URL.Path)
		if r.URL.Query().Get("fundCode") == "161725" {
			_, _ = w.Write([]byte(`jQuery({"Data":{"LSJZList":[{"FSRQ":"2026-10-16","DWJZ":"1.0234","LJJZ":"2.1"}]},"ErrCode":0});`))
			return
		}
		_, _ = w.Write([]byte(`jQuery({"Data":{"LSJZList":[]},"ErrCode":0});`))
	})
	c := NewFundClient(cfg, "")

	n, err := c.FetchNav(context.Background(), "161725")
	require.NoError(t, err)
	assert.Equal(t, 1.0234, n.Nav)
	assert.Equal(t, "2026-10-16", n.NavDate.Format(domain.DateLayout))
	assert.Equal(t, SourceNav, n.SourceID)

	_, err = c.FetchNav(context.Background(), "000001")
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestFundFetchFundList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("\uFEFFvar r = [[\"161725\",\"ZSZZBJ\",\"招商中证白酒指数(LOF)A\",\"指数型-股票\",\"ZHAOSHANG\"],[\"000001\",\"HXCZHH\",\"华夏成长混合\",\"混合型\",\"HUAXIA\"],[\"bad\"]];"))
	}))
	defer srv.Close()

	c := NewFundClient(upstream.Config{}, srv.URL+"/js/fundcode_search.js")
	funds, err := c.FetchFundList(context.Background())
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.Equal(t, domain.Fund{Code: "161725", Name: "招商中证白酒指数(LOF)A"}, funds[0])
}

func TestFundFetchPurchaseLimit(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/f10/F10FundBasicInfo.aspx", r.URL.Path)
		_, _ = w.Write([]byte(`jQuery({"Data":{"FCODE":"161725","PURCHASELIMIT":"10万"}});`))
	})
	l, err := NewFundClient(cfg, "").FetchPurchaseLimit(context.Background(), "161725")
	require.NoError(t, err)
	assert.True(t, l.IsLimited)
	require.NotNil(t, l.LimitAmount)
	assert.Equal(t, 100000.0, *l.LimitAmount)
	assert.Equal(t, "限购 100000 元", l.Description)
}

func TestParsePurchaseLimit(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		limited bool
		amount  float64
	}{
		{"numeric", `{"PurchaseLimit":1000}`, true, 1000},
		{"comma text", `{"PURCHASELIMIT":"1,000"}`, true, 1000},
		{"wan", `{"MaxPurchaseAmount":"5万元"}`, true, 50000},
		{"qian", `{"LimitAmount":"2千"}`, true, 2000},
		{"zero", `{"PURCHASELIMIT":0}`, false, 0},
		{"zero text", `{"PURCHASELIMIT":"0"}`, false, 0},
		{"empty falls through", `{"PURCHASELIMIT":"","PurchaseLimit":"500"}`, true, 500},
		{"garbage", `{"PURCHASELIMIT":"暂停申购"}`, false, 0},
		{"missing", `{"FCODE":"161725"}`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ParsePurchaseLimit("161725", gjson.Parse(tt.json))
			assert.Equal(t, tt.limited, l.IsLimited)
			if !tt.limited {
				assert.Nil(t, l.LimitAmount)
				assert.Equal(t, "不限购", l.Description)
				return
			}
			require.NotNil(t, l.LimitAmount)
			assert.Equal(t, tt.amount, *l.LimitAmount)
		})
	}
}
