package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lofbot/internal/cache/local"
	"github.com/alanyoungcy/lofbot/internal/domain"
)

func TestHubRelaysOpportunities(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := local.NewSignalBus()
	hub := NewHub(bus, slog.New(slog.NewJSONHandler(io.Discard, nil)), Config{Mode: "Full"})
	go hub.Run(ctx)

	srv := httptest.NewServer(hubHandler(hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello Envelope
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.Contains(t, string(hello.Payload), `"mode":"full"`)

	// The hub subscribes asynchronously; keep publishing until a frame lands.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				_ = bus.Publish(ctx, domain.ChannelOpportunities, []byte(`[{"fund_code":"161725"}]`))
			}
		}
	}()

	var frame Envelope
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "opportunities", frame.Type)
	assert.Equal(t, domain.ChannelOpportunities, frame.Channel)

	var payload []map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "161725", payload[0]["fund_code"])
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{}}
	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:fund:*", domain.ChannelStatus}})
	assert.True(t, c.isSubscribed("ch:fund:161725"))
	assert.True(t, c.isSubscribed(domain.ChannelStatus))
	assert.False(t, c.isSubscribed(domain.ChannelOpportunities))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelStatus}})
	assert.False(t, c.isSubscribed(domain.ChannelStatus))
}

func TestChannelType(t *testing.T) {
	assert.Equal(t, "opportunities", channelType(domain.ChannelOpportunities))
	assert.Equal(t, "custom", channelType("custom"))
}

func hubHandler(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", h.HandleWS)
	return mux
}
