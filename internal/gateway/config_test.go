package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/signal-gateway/internal/infra"
	"github.com/fpt/signal-gateway/internal/signal"
)

const sampleConfig = `
log-level: debug
metrics-addr: ":9090"
workers: 2
signal:
  url: http://localhost:8080
  bot-number: "+15550000000"
  poll-interval: 5
  request-timeout: 10s
  rooms:
    zulu: "+15550000003"
    alice: "+2134567890"
  whitelisted-numbers:
    - alice
heartbeat:
  enabled: true
  interval: 1h
  room: alice
`

func TestLoadGatewayConfig(t *testing.T) {
	cfg, err := LoadGatewayConfigFrom(infra.NewInMemoryConfigRepository([]byte(sampleConfig)))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, DefaultQueueSize, cfg.QueueSize)
	assert.Equal(t, DefaultSessionTimeout, cfg.SessionTimeout)

	assert.Equal(t, "+15550000000", cfg.Signal.Bot())
	assert.Equal(t, 5*time.Second, cfg.Signal.Poll())
	assert.Equal(t, 10*time.Second, cfg.Signal.RequestTimeout)
	assert.Equal(t, signal.DefaultReconnectMax, cfg.Signal.ReconnectMax)
	assert.Equal(t, signal.Rooms{
		{Alias: "zulu", Target: "+15550000003"},
		{Alias: "alice", Target: "+2134567890"},
	}, cfg.Signal.Rooms)
	assert.Equal(t, []string{"alice"}, cfg.Signal.WhitelistedNumbers)

	assert.True(t, cfg.Heartbeat.Enabled)
	assert.Equal(t, time.Hour, cfg.Heartbeat.Interval)
}

func TestLoadGatewayConfigRejectsBadYAML(t *testing.T) {
	_, err := LoadGatewayConfigFrom(infra.NewInMemoryConfigRepository([]byte("signal: [")))
	assert.Error(t, err)
}

func TestValidateRequiresPollInterval(t *testing.T) {
	cfg, err := LoadGatewayConfigFrom(infra.NewInMemoryConfigRepository([]byte(`
signal:
  url: http://localhost:8080
  bot-number: "+15550000000"
`)))
	require.NoError(t, err)

	var cerr *signal.ConfigError
	require.True(t, errors.As(cfg.Validate(), &cerr))
	assert.Equal(t, "poll-interval", cerr.Field)

	cfg.Signal.UseJSONRPC = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateHeartbeatNeedsRoom(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Signal = signal.Config{URL: "http://gw", BotNumber: "+15550000000", PollInterval: 1}
	cfg.Heartbeat.Enabled = true

	var cerr *signal.ConfigError
	require.True(t, errors.As(cfg.Validate(), &cerr))
	assert.Equal(t, "heartbeat.room", cerr.Field)
}

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("SIGNAL_GATEWAY_SIGNAL_BOT_NUMBER", "+15559998888")
	t.Setenv("SIGNAL_GATEWAY_SIGNAL_USE_JSON_RPC", "true")
	t.Setenv("SIGNAL_GATEWAY_LOG_LEVEL", "warn")

	cfg, err := LoadGatewayConfigFrom(infra.NewInMemoryConfigRepository([]byte(sampleConfig)))
	require.NoError(t, err)
	cfg.ApplyOverrides(NewViper())

	assert.Equal(t, "+15559998888", cfg.Signal.Bot())
	assert.True(t, cfg.Signal.UseJSONRPC)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "http://localhost:8080", cfg.Signal.URL, "unset keys keep file values")
}

func TestApplyOverridesFromFlags(t *testing.T) {
	cfg, err := LoadGatewayConfigFrom(infra.NewInMemoryConfigRepository([]byte(sampleConfig)))
	require.NoError(t, err)

	v := NewViper()
	v.Set("signal.poll-interval", 30)
	v.Set("metrics-addr", "")
	cfg.ApplyOverrides(v)

	assert.Equal(t, 30, cfg.Signal.PollInterval)
	assert.Equal(t, "", cfg.MetricsAddr)
	assert.Equal(t, 2, cfg.Workers)
}
