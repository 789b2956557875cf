package gateway

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/fpt/signal-gateway/internal/signal"
)

type sentMessage struct {
	To   string
	Text string
}

// fakeSignalClient records outbound calls and serves inbound packets from
// the fetch and open functions.
type fakeSignalClient struct {
	mu      sync.Mutex
	about   *signal.About
	fetch   func(ctx context.Context) ([]signal.RawMessage, error)
	open    func(ctx context.Context) (signal.Stream, error)
	sendErr error

	fetchCalls int
	sent       []sentMessage
	typing     []string
	reactions  []signal.Reaction
}

func (f *fakeSignalClient) About(context.Context) (*signal.About, error) {
	if f.about == nil {
		return nil, errors.New("about not available")
	}
	return f.about, nil
}

func (f *fakeSignalClient) FetchPending(ctx context.Context) ([]signal.RawMessage, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	if f.fetch == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.fetch(ctx)
}

func (f *fakeSignalClient) OpenStream(ctx context.Context) (signal.Stream, error) {
	if f.open == nil {
		return nil, errors.New("streaming not supported")
	}
	return f.open(ctx)
}

func (f *fakeSignalClient) SendMessage(_ context.Context, to signal.Identifier, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to.String(), Text: text})
	return f.sendErr
}

func (f *fakeSignalClient) SendAttachment(_ context.Context, to signal.Identifier, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to.String()})
	return f.sendErr
}

func (f *fakeSignalClient) SetTyping(_ context.Context, to signal.Identifier, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.typing = append(f.typing, to.String())
	}
	return nil
}

func (f *fakeSignalClient) React(_ context.Context, _ signal.Identifier, r signal.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, r)
	return nil
}

func (f *fakeSignalClient) AttachmentURL(id string) string {
	return "http://gw/v1/attachments/" + id
}

func (f *fakeSignalClient) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeSignalClient) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// chanStream yields packets from ch until ch is closed or done fires.
type chanStream struct {
	ch   chan signal.RawMessage
	done <-chan struct{}
}

func (s *chanStream) Next() (signal.RawMessage, error) {
	select {
	case p, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return p, nil
	case <-s.done:
		return nil, context.Canceled
	}
}

func (s *chanStream) Close() error { return nil }

// recordingAdapter is a channel adapter that stores what the gateway sends.
type recordingAdapter struct {
	mu     sync.Mutex
	sent   []OutboundMessage
	typing []string
	rooms  [][2]string
	start  func(ctx context.Context) error
}

func (r *recordingAdapter) Start(ctx context.Context) error {
	if r.start != nil {
		return r.start(ctx)
	}
	<-ctx.Done()
	return nil
}

func (r *recordingAdapter) Stop() error { return nil }

func (r *recordingAdapter) Send(_ context.Context, msg OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingAdapter) SendTyping(_ context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing = append(r.typing, channelID)
	return nil
}

func (r *recordingAdapter) Sent() []OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OutboundMessage(nil), r.sent...)
}

// describingAdapter adds room aliases to recordingAdapter.
type describingAdapter struct {
	*recordingAdapter
}

func (d describingAdapter) Rooms() [][2]string { return d.rooms }

func (d describingAdapter) DisplayName(id string) string {
	for _, r := range d.rooms {
		if r[1] == id {
			return r[0]
		}
	}
	return id
}
