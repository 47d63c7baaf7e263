package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderCallOutcomes(t *testing.T) {
	c := NewCollector("")
	c.ObserveProviderCall("sina", "price", 30*time.Millisecond, nil)
	c.ObserveProviderCall("sina", "price", 2*time.Second, errors.New("timeout"))
	c.ObserveProviderCall("sina", "price", 40*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.providerCalls.WithLabelValues("sina", "price", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerCalls.WithLabelValues("sina", "price", "error")))
}

func TestScreenAndTransitions(t *testing.T) {
	c := NewCollector("test")
	c.ObserveScreen(3*time.Second, 40, 6)
	c.RecordTransition("premium", "in_progress")
	c.RecordTransition("premium", "completed")
	c.RecordTransition("premium", "completed")

	assert.Equal(t, 40.0, testutil.ToFloat64(c.screenFunds))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.screenOpportunities))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.recordTransitions.WithLabelValues("premium", "completed")))
	assert.Greater(t, testutil.ToFloat64(c.lastScreen), 0.0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("lofbot")
	c.ObserveHTTP(http.MethodGet, "GET /api/funds", 200, 5*time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `lofbot_http_requests_total{code="200",method="GET",route="GET /api/funds"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
