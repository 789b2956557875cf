package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fpt/signal-gateway/internal/metrics"
	pkgLogger "github.com/fpt/signal-gateway/pkg/logger"
)

// Gateway is the main orchestrator: it runs the adapters, hands accepted
// inbound messages to the handler and delivers replies.
type Gateway struct {
	config    *GatewayConfig
	bus       *MessageBus
	sessions  *SessionManager
	heartbeat *Heartbeat
	adapters  map[string]Adapter
	handler   Handler
	logger    *pkgLogger.Logger
}

// NewGateway creates a gateway with the adapters enabled in cfg. A nil
// handler answers with EchoHandler.
func NewGateway(cfg *GatewayConfig, handler Handler, logger *pkgLogger.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bus := NewMessageBus(cfg.QueueSize)
	gw := newGateway(cfg, bus, handler, logger)

	signalAdapter, err := NewSignalAdapter(bus, cfg.Signal, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signal adapter")
	}
	gw.AddAdapter(ChannelSignal, signalAdapter)
	return gw, nil
}

func newGateway(cfg *GatewayConfig, bus *MessageBus, handler Handler, logger *pkgLogger.Logger) *Gateway {
	if handler == nil {
		handler = EchoHandler()
	}
	return &Gateway{
		config:    cfg,
		bus:       bus,
		sessions:  NewSessionManager(cfg.SessionTimeout),
		heartbeat: NewHeartbeat(cfg.Heartbeat, bus, logger),
		adapters:  make(map[string]Adapter),
		handler:   handler,
		logger:    logger.WithComponent("gateway"),
	}
}

// AddAdapter registers an adapter under its channel type. Call before Run.
func (gw *Gateway) AddAdapter(channelType string, a Adapter) {
	gw.adapters[channelType] = a
}

// Adapter returns the adapter for channelType, if any.
func (gw *Gateway) Adapter(channelType string) (Adapter, bool) {
	a, ok := gw.adapters[channelType]
	return a, ok
}

// Bus exposes the message bus.
func (gw *Gateway) Bus() *MessageBus { return gw.bus }

// Run starts all adapters and processes messages. Blocks until ctx is
// cancelled or an adapter fails.
func (gw *Gateway) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for name, a := range gw.adapters {
		name, a := name, a
		gw.logger.Info("Starting adapter", "adapter", name)
		g.Go(func() error {
			if err := a.Start(ctx); err != nil && ctx.Err() == nil {
				return errors.Wrapf(err, "adapter %s failed", name)
			}
			return nil
		})
	}

	g.Go(func() error {
		gw.heartbeat.Start(ctx)
		return nil
	})
	g.Go(func() error {
		gw.dispatchOutbound(ctx)
		return nil
	})
	g.Go(func() error {
		return metrics.Serve(ctx, gw.config.MetricsAddr, gw.logger)
	})
	g.Go(func() error {
		gw.dispatchInbound(ctx)
		return nil
	})

	gw.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Gateway running, processing messages")
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// dispatchInbound hands messages to the handler on a fixed set of workers.
// Messages of one conversation always land on the same worker, so they reach
// the handler in bus order. When a worker is busy the bus fills up and the
// adapter blocks.
func (gw *Gateway) dispatchInbound(ctx context.Context) {
	lanes := make([]chan InboundMessage, gw.config.Workers)
	workers := new(errgroup.Group)
	for i := range lanes {
		lane := make(chan InboundMessage)
		lanes[i] = lane
		workers.Go(func() error {
			for msg := range lane {
				gw.handleInbound(ctx, msg)
			}
			return nil
		})
	}
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		_ = workers.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-gw.bus.Inbound:
			select {
			case lanes[laneFor(msg, len(lanes))] <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// laneFor maps a conversation to a worker index.
func laneFor(msg InboundMessage, n int) int {
	return int(xxhash.Sum64String(msg.ChannelType+"\x00"+msg.ChannelID) % uint64(n))
}

func (gw *Gateway) handleInbound(ctx context.Context, msg InboundMessage) {
	logger := gw.logger.WithConversation(msg.ChannelID)
	key := SessionKey{
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		PeerID:      msg.PeerID,
	}
	if !gw.sessions.Observe(key, string(msg.Kind)+":"+msg.ReplyToID) {
		metrics.InboundDropped.WithLabelValues(metrics.ReasonDuplicate).Inc()
		logger.Debug("Dropping duplicate message", "id", msg.ReplyToID)
		return
	}

	if msg.Kind == KindText && strings.HasPrefix(msg.Text, "!") {
		gw.handleCommand(ctx, msg, logger)
		return
	}
	if msg.Kind == KindTyping {
		return
	}

	if msg.Kind == KindText {
		if a, ok := gw.adapters[msg.ChannelType]; ok {
			_ = a.SendTyping(ctx, msg.ChannelID)
		}
	}

	reply, err := gw.handler.Handle(ctx, msg)
	if err != nil {
		logger.Error("Handler failed", "error", err)
		return
	}
	if reply == "" {
		return
	}
	_ = gw.bus.Reply(ctx, OutboundMessage{
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		Text:        reply,
		ReplyToID:   msg.ReplyToID,
	})
}

func (gw *Gateway) handleCommand(ctx context.Context, msg InboundMessage, logger *pkgLogger.Logger) {
	parts := strings.Fields(msg.Text)
	cmd := strings.TrimPrefix(parts[0], "!")
	logger.InfoWithIntention(pkgLogger.IntentionCommand, "Command", "command", cmd)

	describer, _ := gw.adapters[msg.ChannelType].(Describer)

	var response string
	switch cmd {
	case "ping":
		response = "pong"
	case "whoami":
		name := msg.PeerID
		if describer != nil {
			name = describer.DisplayName(msg.PeerID)
		}
		response = fmt.Sprintf("You are %s, writing in %s.", name, msg.ChannelID)
	case "rooms":
		response = gw.describeRooms(describer)
	case "clear":
		gw.sessions.ClearSession(SessionKey{ChannelType: msg.ChannelType, ChannelID: msg.ChannelID, PeerID: msg.PeerID})
		response = "Conversation state cleared."
	case "help":
		response = "Available commands:\n" +
			"!ping - check the bot is alive\n" +
			"!whoami - show how the bot sees you\n" +
			"!rooms - list configured room aliases\n" +
			"!clear - forget this conversation\n" +
			"!help - show this help"
	default:
		response = fmt.Sprintf("Unknown command: !%s. Use !help for available commands.", cmd)
	}

	_ = gw.bus.Reply(ctx, OutboundMessage{
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		Text:        response,
		ReplyToID:   msg.ReplyToID,
	})
}

func (gw *Gateway) describeRooms(d Describer) string {
	if d == nil {
		return "This channel has no room aliases."
	}
	rooms := d.Rooms()
	if len(rooms) == 0 {
		return "No room aliases configured."
	}
	lines := make([]string, 0, len(rooms))
	for _, r := range rooms {
		lines = append(lines, fmt.Sprintf("%s -> %s", r[0], r[1]))
	}
	return "Rooms:\n" + strings.Join(lines, "\n")
}

func (gw *Gateway) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-gw.bus.Outbound:
			if err := gw.Send(ctx, msg); err != nil {
				gw.logger.Error("Failed to send outbound message", "error", err, "conversation", msg.ChannelID)
			}
		}
	}
}

// Send delivers msg synchronously through its adapter and returns the
// adapter's error. Sends are never retried.
func (gw *Gateway) Send(ctx context.Context, msg OutboundMessage) error {
	a, ok := gw.adapters[msg.ChannelType]
	if !ok {
		return errors.Errorf("no adapter for channel type %q", msg.ChannelType)
	}
	return a.Send(ctx, msg)
}

// Close shuts down all adapters.
func (gw *Gateway) Close() error {
	for _, a := range gw.adapters {
		_ = a.Stop()
	}
	return nil
}
