package gateway

import (
	"context"
	"time"
)

// MessageKind mirrors the kinds an adapter can deliver.
type MessageKind string

const (
	KindText       MessageKind = "text"
	KindReaction   MessageKind = "reaction"
	KindAttachment MessageKind = "attachment"
	KindTyping     MessageKind = "typing"
)

// Attachment is a file the peer sent, downloadable from URL.
type Attachment struct {
	URL      string
	Name     string
	MimeType string
}

// InboundMessage represents a message arriving from any channel adapter.
type InboundMessage struct {
	ChannelType string // "signal"
	ChannelID   string // conversation, as its display name (alias or canonical id)
	PeerID      string // sender, canonical
	PeerName    string // profile name reported by the sender
	Kind        MessageKind
	Text        string
	Emoji       string // KindReaction; empty when a reaction was removed
	Typing      bool   // KindTyping
	ReplyToID   string // id of the message, used for reactions and dedup
	Timestamp   time.Time
	Attachments []Attachment
}

// OutboundMessage represents a message to send back to a channel.
type OutboundMessage struct {
	ChannelType string
	ChannelID   string // alias or canonical id; resolved by the adapter
	Text        string
	ReplyToID   string // optional: message being answered
}

// MessageBus decouples channel adapters from message handling. Both queues
// are bounded: a full Inbound queue blocks the adapter's read side.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage
}

// NewMessageBus creates a message bus with buffered channels.
func NewMessageBus(bufferSize int) *MessageBus {
	if bufferSize <= 0 {
		bufferSize = DefaultQueueSize
	}
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufferSize),
		Outbound: make(chan OutboundMessage, bufferSize),
	}
}

// Publish enqueues msg, waiting for room. It fails only when ctx is done.
func (b *MessageBus) Publish(ctx context.Context, msg InboundMessage) error {
	select {
	case b.Inbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reply enqueues an outbound message, waiting for room.
func (b *MessageBus) Reply(ctx context.Context, msg OutboundMessage) error {
	select {
	case b.Outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
