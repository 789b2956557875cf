package signal

import (
	"net/url"
	"time"
)

// DeliveryMode is fixed for the lifetime of a connector.
type DeliveryMode int

const (
	ModePolling DeliveryMode = iota
	ModeStreaming
)

func (m DeliveryMode) String() string {
	if m == ModeStreaming {
		return "streaming"
	}
	return "polling"
}

// DeliveryAuto asks the connector to probe /v1/about once at startup.
const DeliveryAuto = "auto"

const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultReconnectMin    = time.Second
	DefaultReconnectMax    = 30 * time.Second
	DefaultStreamKeepAlive = 60 * time.Second
)

// Config holds the Signal connector settings.
type Config struct {
	URL       string `yaml:"url"`
	BotNumber string `yaml:"bot-number"`
	// Number is the older spelling of bot-number.
	Number string `yaml:"number"`

	// PollInterval is in seconds. Required in polling mode, ignored when streaming.
	PollInterval int    `yaml:"poll-interval"`
	UseJSONRPC   bool   `yaml:"use-json-rpc"`
	DeliveryMode string `yaml:"delivery-mode"`

	RequestTimeout time.Duration `yaml:"request-timeout"`
	ReconnectMin   time.Duration `yaml:"reconnect-min"`
	ReconnectMax   time.Duration `yaml:"reconnect-max"`

	// StreamKeepAlive is how long a stream may stay silent, pongs included,
	// before it is treated as dropped.
	StreamKeepAlive time.Duration `yaml:"stream-keepalive"`

	Rooms              Rooms    `yaml:"rooms"`
	WhitelistedNumbers []string `yaml:"whitelisted-numbers"`
}

// Bot returns the configured bot number, preferring bot-number over number.
func (c *Config) Bot() string {
	if c.BotNumber != "" {
		return c.BotNumber
	}
	return c.Number
}

// Poll returns the polling cadence.
func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// ApplyDefaults fills the optional durations.
func (c *Config) ApplyDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = DefaultReconnectMin
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = DefaultReconnectMax
	}
	if c.StreamKeepAlive <= 0 {
		c.StreamKeepAlive = DefaultStreamKeepAlive
	}
	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = c.ReconnectMin
	}
}

// Validate reports the first problem as a *ConfigError.
func (c *Config) Validate() error {
	if c.URL == "" {
		return configErrorf("url", "required setting not found")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return configErrorf("url", "must be an http(s) URL, got %q", c.URL)
	}
	if c.Bot() == "" {
		return configErrorf("bot-number", "required setting not found")
	}
	if _, err := PhoneID(c.Bot()); err != nil {
		return &ConfigError{Field: "bot-number", Err: err}
	}
	switch c.DeliveryMode {
	case "", DeliveryAuto:
	default:
		return configErrorf("delivery-mode", "unknown value %q (want \"\" or %q)", c.DeliveryMode, DeliveryAuto)
	}
	if !c.UseJSONRPC && c.PollInterval <= 0 {
		return configErrorf("poll-interval", "must be a positive number of seconds in polling mode, got %d", c.PollInterval)
	}
	return nil
}

// SelectMode is a pure function of the configuration and, in auto mode, of the
// gateway's reported mode. use-json-rpc always wins.
func SelectMode(c *Config, about *About) DeliveryMode {
	if c.UseJSONRPC {
		return ModeStreaming
	}
	if c.DeliveryMode == DeliveryAuto && about != nil && about.Mode == "json-rpc" {
		return ModeStreaming
	}
	return ModePolling
}
