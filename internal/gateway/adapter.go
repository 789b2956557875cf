package gateway

import "context"

// Adapter is the interface all channel adapters implement.
type Adapter interface {
	// Start begins listening for messages. Blocks until ctx is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the adapter.
	Stop() error
	// Send sends a message to the channel. Failures are returned, not retried.
	Send(ctx context.Context, msg OutboundMessage) error
	// SendTyping shows a typing indicator in the channel.
	SendTyping(ctx context.Context, channelID string) error
}

// Describer is optionally implemented by adapters that can explain how they
// address peers (used by the !whoami and !rooms commands).
type Describer interface {
	// Rooms lists configured aliases and their canonical targets in load order.
	Rooms() [][2]string
	// DisplayName renders a canonical id the way inbound ChannelIDs are rendered.
	DisplayName(id string) string
}
