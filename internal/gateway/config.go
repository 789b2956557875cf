package gateway

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fpt/signal-gateway/internal/infra"
	"github.com/fpt/signal-gateway/internal/repository"
	"github.com/fpt/signal-gateway/internal/signal"
)

const (
	DefaultQueueSize      = 64
	DefaultWorkers        = 4
	DefaultSessionTimeout = 30 * time.Minute
)

// GatewayConfig is the top-level configuration for signal-gateway.
type GatewayConfig struct {
	LogLevel       string          `yaml:"log-level"`
	MetricsAddr    string          `yaml:"metrics-addr"`    // empty disables /metrics
	SessionTimeout time.Duration   `yaml:"session-timeout"` // idle conversations are forgotten after this
	QueueSize      int             `yaml:"queue-size"`      // bus capacity in each direction
	Workers        int             `yaml:"workers"`         // concurrent handler invocations
	Signal         signal.Config   `yaml:"signal"`
	Heartbeat      HeartbeatConfig `yaml:"heartbeat"`
}

// DefaultGatewayConfig returns sensible defaults. Signal connection settings
// have none and must come from the file or the environment.
func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		LogLevel:       "info",
		SessionTimeout: DefaultSessionTimeout,
		QueueSize:      DefaultQueueSize,
		Workers:        DefaultWorkers,
		Heartbeat: HeartbeatConfig{
			Enabled:  false,
			Interval: 24 * time.Hour,
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return infra.DefaultConfigPath()
}

// LoadGatewayConfig loads configuration from a YAML file. An empty path
// searches the default locations.
func LoadGatewayConfig(path string) (*GatewayConfig, error) {
	return LoadGatewayConfigFrom(infra.NewFileConfigRepository(path))
}

// LoadGatewayConfigFrom decodes the repository content over the defaults.
func LoadGatewayConfigFrom(repo repository.ConfigRepository) (*GatewayConfig, error) {
	data, err := repo.Load()
	if err != nil {
		return nil, err
	}
	cfg := DefaultGatewayConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse gateway config")
	}
	return cfg, nil
}

// overrideKeys are the scalar settings that flags and SIGNAL_GATEWAY_*
// environment variables may replace.
var overrideKeys = []string{
	"log-level",
	"metrics-addr",
	"signal.url",
	"signal.bot-number",
	"signal.poll-interval",
	"signal.use-json-rpc",
	"signal.delivery-mode",
	"signal.request-timeout",
}

// NewViper returns a viper instance reading SIGNAL_GATEWAY_* variables,
// e.g. SIGNAL_GATEWAY_SIGNAL_BOT_NUMBER for signal.bot-number.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SIGNAL_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range overrideKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// ApplyOverrides copies every override key that v has a value for.
func (c *GatewayConfig) ApplyOverrides(v *viper.Viper) {
	if v == nil {
		return
	}
	set := func(key string, apply func()) {
		if v.IsSet(key) {
			apply()
		}
	}
	set("log-level", func() { c.LogLevel = v.GetString("log-level") })
	set("metrics-addr", func() { c.MetricsAddr = v.GetString("metrics-addr") })
	set("signal.url", func() { c.Signal.URL = v.GetString("signal.url") })
	set("signal.bot-number", func() { c.Signal.BotNumber = v.GetString("signal.bot-number") })
	set("signal.poll-interval", func() { c.Signal.PollInterval = v.GetInt("signal.poll-interval") })
	set("signal.use-json-rpc", func() { c.Signal.UseJSONRPC = v.GetBool("signal.use-json-rpc") })
	set("signal.delivery-mode", func() { c.Signal.DeliveryMode = v.GetString("signal.delivery-mode") })
	set("signal.request-timeout", func() { c.Signal.RequestTimeout = v.GetDuration("signal.request-timeout") })
}

// Validate fills defaults and checks the configuration. Errors are
// *signal.ConfigError and abort startup.
func (c *GatewayConfig) Validate() error {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	c.Signal.ApplyDefaults()
	if err := c.Signal.Validate(); err != nil {
		return err
	}
	if c.Heartbeat.Enabled && c.Heartbeat.Room == "" {
		return &signal.ConfigError{Field: "heartbeat.room", Err: errors.New("required when heartbeat is enabled")}
	}
	return nil
}
