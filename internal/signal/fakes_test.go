package signal

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeClock advances its own time whenever something waits on it, so loops
// driven by it run instantly and deterministically.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) (<-chan time.Time, func() bool) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch, func() bool { return false }
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeClient implements GatewayClient with overridable receive functions.
type fakeClient struct {
	mu         sync.Mutex
	fetch      func(ctx context.Context) ([]RawMessage, error)
	open       func(ctx context.Context) (Stream, error)
	fetchCalls int
	openCalls  int
}

func (f *fakeClient) About(context.Context) (*About, error) { return &About{Mode: "normal"}, nil }

func (f *fakeClient) FetchPending(ctx context.Context) ([]RawMessage, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
	if f.fetch == nil {
		return nil, nil
	}
	return f.fetch(ctx)
}

func (f *fakeClient) OpenStream(ctx context.Context) (Stream, error) {
	f.mu.Lock()
	f.openCalls++
	f.mu.Unlock()
	if f.open == nil {
		return nil, errors.New("no stream")
	}
	return f.open(ctx)
}

func (f *fakeClient) SendMessage(context.Context, Identifier, string) error    { return nil }
func (f *fakeClient) SendAttachment(context.Context, Identifier, []byte) error { return nil }
func (f *fakeClient) SetTyping(context.Context, Identifier, bool) error        { return nil }
func (f *fakeClient) React(context.Context, Identifier, Reaction) error        { return nil }
func (f *fakeClient) AttachmentURL(id string) string                           { return "/v1/attachments/" + id }

func (f *fakeClient) calls() (fetch, open int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.openCalls
}

// sliceStream yields packets and then fails with err.
type sliceStream struct {
	packets []RawMessage
	err     error
	closed  bool
}

func (s *sliceStream) Next() (RawMessage, error) {
	if len(s.packets) == 0 {
		return nil, s.err
	}
	p := s.packets[0]
	s.packets = s.packets[1:]
	return p, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}
