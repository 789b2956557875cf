package gateway

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/fpt/signal-gateway/internal/metrics"
	"github.com/fpt/signal-gateway/internal/signal"
	pkgLogger "github.com/fpt/signal-gateway/pkg/logger"
)

// ChannelSignal is the ChannelType of messages from the Signal adapter.
const ChannelSignal = "signal"

// SignalAdapter implements the Adapter interface for Signal through a
// signal-cli-rest-api gateway.
type SignalAdapter struct {
	config   signal.Config
	client   signal.GatewayClient
	bus      *MessageBus
	logger   *pkgLogger.Logger
	self     signal.Identifier
	resolver *signal.Resolver

	newSource func(mode signal.DeliveryMode) signal.Source

	mu     sync.Mutex
	mode   signal.DeliveryMode
	cancel context.CancelFunc
}

// NewSignalAdapter creates a Signal adapter. Configuration problems are
// returned as *signal.ConfigError.
func NewSignalAdapter(bus *MessageBus, cfg signal.Config, logger *pkgLogger.Logger) (*SignalAdapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := signal.NewClient(cfg.URL, cfg.Bot(), cfg.RequestTimeout)
	if err != nil {
		return nil, &signal.ConfigError{Field: "url", Err: err}
	}
	client.SetStreamKeepAlive(cfg.StreamKeepAlive)
	return newSignalAdapter(bus, cfg, client, logger)
}

func newSignalAdapter(bus *MessageBus, cfg signal.Config, client signal.GatewayClient, logger *pkgLogger.Logger) (*SignalAdapter, error) {
	self, err := signal.PhoneID(cfg.Bot())
	if err != nil {
		return nil, &signal.ConfigError{Field: "bot-number", Err: err}
	}
	dir, err := signal.NewDirectory(cfg.Rooms, cfg.WhitelistedNumbers)
	if err != nil {
		return nil, err
	}

	a := &SignalAdapter{
		config:   cfg,
		client:   client,
		bus:      bus,
		logger:   logger.WithComponent("signal"),
		self:     self,
		resolver: signal.NewResolver(dir),
	}
	a.newSource = func(mode signal.DeliveryMode) signal.Source {
		return signal.NewSource(mode, &a.config, a.client, logger)
	}
	return a, nil
}

// Start selects the delivery mode once and receives messages until ctx is
// cancelled or Stop is called.
func (a *SignalAdapter) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mode := a.selectMode(ctx)
	a.mu.Lock()
	a.mode = mode
	a.cancel = cancel
	a.mu.Unlock()

	dir := a.resolver.Snapshot()
	a.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Starting Signal adapter",
		"mode", mode, "number", a.self, "aliases", dir.Aliases.Len(), "whitelisted", dir.Whitelist.Len())

	return a.newSource(mode).Run(ctx, a.handlePacket)
}

// selectMode probes /v1/about only when delivery-mode is auto.
func (a *SignalAdapter) selectMode(ctx context.Context) signal.DeliveryMode {
	if a.config.UseJSONRPC || a.config.DeliveryMode != signal.DeliveryAuto {
		return signal.SelectMode(&a.config, nil)
	}
	about, err := a.client.About(ctx)
	if err != nil {
		a.logger.Warn("Failed to query gateway mode, falling back to polling", "error", err)
		return signal.SelectMode(&a.config, nil)
	}
	a.logger.Debug("Gateway about", "mode", about.Mode, "version", about.Version)
	return signal.SelectMode(&a.config, about)
}

// Mode reports the delivery mode chosen by Start.
func (a *SignalAdapter) Mode() signal.DeliveryMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Stop cancels the receive loop, closing any open stream or in-flight fetch.
func (a *SignalAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

// handlePacket normalizes, filters and publishes one packet. It only fails
// when ctx is done while waiting for room on the bus.
func (a *SignalAdapter) handlePacket(ctx context.Context, raw signal.RawMessage) error {
	msg, err := signal.Normalize(raw)
	if errors.Is(err, signal.ErrNoContent) {
		a.logger.Debug("Skipping envelope without content")
		return nil
	}
	if errors.Is(err, signal.ErrHiddenSender) {
		metrics.InboundDropped.WithLabelValues(metrics.ReasonHiddenSender).Inc()
		a.logger.DebugWithIntention(pkgLogger.IntentionDrop, "Sender has no phone number", "error", err)
		return nil
	}
	if err != nil {
		metrics.InboundDropped.WithLabelValues(metrics.ReasonMalformed).Inc()
		a.logger.Warn("Dropping malformed packet", "error", err)
		return nil
	}
	if msg.Sender == a.self {
		metrics.InboundDropped.WithLabelValues(metrics.ReasonSelf).Inc()
		return nil
	}
	if !a.resolver.IsAllowed(msg.Sender) {
		// No reply to rejected senders.
		metrics.InboundDropped.WithLabelValues(metrics.ReasonNotWhitelisted).Inc()
		a.logger.DebugWithIntention(pkgLogger.IntentionDrop, "Sender not whitelisted", "sender", msg.Sender)
		return nil
	}

	in := a.toInbound(msg)
	a.logger.InfoWithIntention(pkgLogger.IntentionInbound, "Received "+string(in.Kind), "from", in.PeerID, "conversation", in.ChannelID)
	if err := a.bus.Publish(ctx, in); err != nil {
		return err
	}
	metrics.InboundDelivered.WithLabelValues(string(in.Kind)).Inc()
	return nil
}

func (a *SignalAdapter) toInbound(msg *signal.InboundMessage) InboundMessage {
	in := InboundMessage{
		ChannelType: ChannelSignal,
		ChannelID:   a.resolver.DisplayName(msg.Conversation()),
		PeerID:      msg.Sender.String(),
		PeerName:    msg.SenderName,
		Kind:        MessageKind(msg.Kind),
		Text:        msg.Text,
		Typing:      msg.Typing,
		ReplyToID:   strconv.FormatInt(msg.EventID, 10),
		Timestamp:   msg.Timestamp,
	}
	if msg.Reaction != nil {
		in.Emoji = msg.Reaction.Emoji
	}
	for _, att := range msg.Attachments {
		in.Attachments = append(in.Attachments, Attachment{
			URL:      a.client.AttachmentURL(att.ID),
			Name:     att.Filename,
			MimeType: att.MimeType,
		})
	}
	return in
}

// resolve maps a ChannelID (alias or canonical id) to its identifier.
func (a *SignalAdapter) resolve(op, channelID string) (signal.Identifier, error) {
	to, err := a.resolver.Resolve(channelID)
	if err != nil {
		metrics.OutboundSends.WithLabelValues(op, "unresolved").Inc()
		return signal.Identifier{}, err
	}
	return to, nil
}

func observeSend(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.OutboundSends.WithLabelValues(op, status).Inc()
}

// Send sends a text message. The ChannelID may be an alias.
func (a *SignalAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	to, err := a.resolve("send", msg.ChannelID)
	if err != nil {
		return err
	}
	a.logger.InfoWithIntention(pkgLogger.IntentionOutbound, "Sending message", "to", msg.ChannelID)
	err = a.client.SendMessage(ctx, to, msg.Text)
	observeSend("send", err)
	if err != nil {
		return errors.Wrapf(err, "send to %s", msg.ChannelID)
	}
	return nil
}

// SendTyping shows a typing indicator.
func (a *SignalAdapter) SendTyping(ctx context.Context, channelID string) error {
	return a.SetTyping(ctx, channelID, true)
}

// SetTyping sets or clears the typing indicator.
func (a *SignalAdapter) SetTyping(ctx context.Context, channelID string, on bool) error {
	to, err := a.resolve("typing", channelID)
	if err != nil {
		return err
	}
	err = a.client.SetTyping(ctx, to, on)
	observeSend("typing", err)
	return err
}

// SendAttachment sends a single file.
func (a *SignalAdapter) SendAttachment(ctx context.Context, channelID string, data []byte) error {
	to, err := a.resolve("attachment", channelID)
	if err != nil {
		return err
	}
	err = a.client.SendAttachment(ctx, to, data)
	observeSend("attachment", err)
	if err != nil {
		return errors.Wrapf(err, "send attachment to %s", channelID)
	}
	return nil
}

// React reacts to the message identified by targetAuthor and messageID (the
// ReplyToID of an inbound message). An empty emoji removes the reaction.
func (a *SignalAdapter) React(ctx context.Context, channelID, emoji, targetAuthor, messageID string) error {
	to, err := a.resolve("reaction", channelID)
	if err != nil {
		return err
	}
	author, err := a.resolver.Resolve(targetAuthor)
	if err != nil {
		return err
	}
	ts, err := strconv.ParseInt(messageID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid message id %q", messageID)
	}
	err = a.client.React(ctx, to, signal.Reaction{Emoji: emoji, TargetAuthor: author, Timestamp: ts})
	observeSend("reaction", err)
	return err
}

// Reload replaces aliases and whitelist in one atomic step.
func (a *SignalAdapter) Reload(rooms signal.Rooms, whitelisted []string) error {
	dir, err := signal.NewDirectory(rooms, whitelisted)
	if err != nil {
		return err
	}
	a.resolver.Reload(dir)
	a.logger.InfoWithIntention(pkgLogger.IntentionConfig, "Reloaded aliases", "aliases", dir.Aliases.Len(), "whitelisted", dir.Whitelist.Len())
	return nil
}

// Rooms implements Describer.
func (a *SignalAdapter) Rooms() [][2]string {
	rooms := a.resolver.Snapshot().Aliases.Rooms()
	out := make([][2]string, len(rooms))
	for i, r := range rooms {
		out[i] = [2]string{r.Alias, r.Target}
	}
	return out
}

// DisplayName implements Describer.
func (a *SignalAdapter) DisplayName(id string) string {
	parsed, err := signal.ParseIdentifier(id)
	if err != nil {
		return id
	}
	return a.resolver.DisplayName(parsed)
}
