package sina

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/platform/upstream"
)

func TestFetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, Referer, r.Header.Get("Referer"))
		var line string
		switch r.URL.Path {
		case "/list=sz161725":
			line = `var hq_str_sz161725="招商中证白酒,1.000,1.000,1.050,1.060,0.990,1.049,1.050,123400,129570.00,2026-10-16,15:00:00,00";`
		case "/list=sh501018":
			line = `var hq_str_sh501018="南方原油,0,0.9,0.000";`
		default:
			line = `var hq_str_sz160000="";`
		}
		raw, _ := simplifiedchinese.GBK.NewEncoder().String(line)
		_, _ = w.Write([]byte(raw))
	}))
	defer srv.Close()

	c := New(upstream.Config{BaseURL: srv.URL})
	ctx := context.Background()

	q, err := c.FetchPrice(ctx, "161725")
	require.NoError(t, err)
	assert.Equal(t, 1.05, q.Price)
	assert.InDelta(t, 5.0, q.ChangePct, 1e-9)
	assert.Equal(t, 123400.0, q.Volume)
	assert.Equal(t, 129570.0, q.Amount)
	assert.Equal(t, SourceID, q.SourceID)

	_, err = c.FetchPrice(ctx, "501018")
	assert.Error(t, err, "zero price is a failure")

	_, err = c.FetchPrice(ctx, "160000")
	assert.ErrorIs(t, err, domain.ErrNoData)
}
