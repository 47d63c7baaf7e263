package tencent

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
		var line string
		switch r.URL.Path {
		case "/q=sz161725":
			line = `v_sz161725="51~招商中证白酒~161725~0.990~1.100~1.000~5000~4950~2500";`
		case "/q=sh501018":
			line = `v_sh501018="1~南方原油";`
		default:
			line = `v_pv_none_match="1";`
		}
		raw, _ := simplifiedchinese.GBK.NewEncoder().String(line)
		_, _ = w.Write([]byte(raw))
	}))
	defer srv.Close()

	c := New(upstream.Config{BaseURL: srv.URL})
	ctx := context.Background()

	q, err := c.FetchPrice(ctx, "161725")
	require.NoError(t, err)
	assert.Equal(t, 0.99, q.Price)
	assert.InDelta(t, -10.0, q.ChangePct, 1e-9)
	assert.Equal(t, 5000.0, q.Volume)
	assert.Equal(t, 4950.0, q.Amount)
	assert.Equal(t, SourceID, q.SourceID)

	_, err = c.FetchPrice(ctx, "501018")
	assert.ErrorContains(t, err, "short record")

	_, err = c.FetchPrice(ctx, "160001")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
