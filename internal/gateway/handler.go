package gateway

import "context"

// Handler is the host side of the gateway. It is called once per accepted
// inbound message; a non-empty reply is sent back to the conversation.
type Handler interface {
	Handle(ctx context.Context, msg InboundMessage) (reply string, err error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg InboundMessage) (string, error)

func (f HandlerFunc) Handle(ctx context.Context, msg InboundMessage) (string, error) {
	return f(ctx, msg)
}

// EchoHandler answers text messages with their own text.
func EchoHandler() Handler {
	return HandlerFunc(func(_ context.Context, msg InboundMessage) (string, error) {
		if msg.Kind != KindText {
			return "", nil
		}
		return msg.Text, nil
	})
}
