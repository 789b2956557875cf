package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgLogger "github.com/fpt/signal-gateway/pkg/logger"
)

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	InboundDropped.WithLabelValues(ReasonSelf).Inc()

	srv := httptest.NewServer(NewRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `signal_gateway_inbound_dropped_total{reason="self"}`))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(OutboundSends.WithLabelValues("send", "ok"))
	OutboundSends.WithLabelValues("send", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(OutboundSends.WithLabelValues("send", "ok")))
}

func TestServeDisabled(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), "", pkgLogger.Nop()))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Serve(ctx, "127.0.0.1:0", pkgLogger.Nop()))
}
