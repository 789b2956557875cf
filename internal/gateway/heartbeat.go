package gateway

import (
	"context"
	"fmt"
	"time"

	pkgLogger "github.com/fpt/signal-gateway/pkg/logger"
)

const minHeartbeatInterval = 5 * time.Minute

// HeartbeatConfig defines a periodic status message.
type HeartbeatConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	Text        string        `yaml:"text"`         // default: "signal-gateway alive since <start>"
	ChannelType string        `yaml:"channel-type"` // default: "signal"
	Room        string        `yaml:"room"`         // alias or canonical id
}

// Heartbeat sends a status message to one room on a fixed interval.
type Heartbeat struct {
	config  HeartbeatConfig
	bus     *MessageBus
	logger  *pkgLogger.Logger
	started time.Time
}

// NewHeartbeat creates a heartbeat service.
func NewHeartbeat(cfg HeartbeatConfig, bus *MessageBus, logger *pkgLogger.Logger) *Heartbeat {
	if cfg.ChannelType == "" {
		cfg.ChannelType = ChannelSignal
	}
	return &Heartbeat{
		config:  cfg,
		bus:     bus,
		logger:  logger.WithComponent("heartbeat"),
		started: time.Now(),
	}
}

// Start runs the heartbeat ticker loop. Blocks until ctx is cancelled.
func (h *Heartbeat) Start(ctx context.Context) {
	if !h.config.Enabled || h.config.Room == "" {
		return
	}

	interval := h.config.Interval
	if interval < minHeartbeatInterval {
		interval = minHeartbeatInterval
	}

	h.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Heartbeat started", "interval", interval, "room", h.config.Room)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.bus.Reply(ctx, h.message()); err != nil {
				return
			}
		}
	}
}

func (h *Heartbeat) message() OutboundMessage {
	text := h.config.Text
	if text == "" {
		text = fmt.Sprintf("signal-gateway alive since %s", h.started.Format(time.RFC3339))
	}
	return OutboundMessage{
		ChannelType: h.config.ChannelType,
		ChannelID:   h.config.Room,
		Text:        text,
	}
}
