package signal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const maxResponseBytes = 8 << 20

// RawMessage is one undecoded packet from the receive endpoint.
type RawMessage []byte

// About is the subset of /v1/about the connector uses.
type About struct {
	Mode     string   `json:"mode"`
	Version  string   `json:"version"`
	Versions []string `json:"versions"`
}

// Reaction targets a previously received message. An empty Emoji removes it.
type Reaction struct {
	Emoji        string
	TargetAuthor Identifier
	Timestamp    int64
}

// Stream is an open receive stream. Next blocks until a packet arrives or the
// stream fails; Close releases the connection.
type Stream interface {
	Next() (RawMessage, error)
	Close() error
}

// GatewayClient is what the connector needs from the REST gateway.
type GatewayClient interface {
	About(ctx context.Context) (*About, error)
	FetchPending(ctx context.Context) ([]RawMessage, error)
	OpenStream(ctx context.Context) (Stream, error)
	SendMessage(ctx context.Context, to Identifier, text string) error
	SendAttachment(ctx context.Context, to Identifier, data []byte) error
	SetTyping(ctx context.Context, to Identifier, on bool) error
	React(ctx context.Context, to Identifier, r Reaction) error
	AttachmentURL(id string) string
}

// Client talks to a signal-cli-rest-api instance.
type Client struct {
	base      *url.URL
	number    string
	http      *http.Client
	dialer    *websocket.Dialer
	keepAlive time.Duration
}

// NewClient builds a client for the gateway at baseURL acting as number.
// Every HTTP request is bounded by timeout.
func NewClient(baseURL, number string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse gateway url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""
	return &Client{
		base:   u,
		number: number,
		http:   &http.Client{Timeout: timeout},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		keepAlive: DefaultStreamKeepAlive,
	}, nil
}

// SetStreamKeepAlive sets how long an open stream may go without any frame
// from the gateway. Pings are sent at 9/10 of that period.
func (c *Client) SetStreamKeepAlive(d time.Duration) {
	if d > 0 {
		c.keepAlive = d
	}
}

// endpoint expands {number} in path with the escaped bot number.
func (c *Client) endpoint(path string) string {
	path = strings.ReplaceAll(path, "{number}", url.QueryEscape(c.number))
	return c.base.String() + path
}

// AttachmentURL is where a received attachment can be downloaded.
func (c *Client) AttachmentURL(id string) string {
	return c.endpoint("/v1/attachments/" + url.PathEscape(id))
}

func (c *Client) About(ctx context.Context) (*About, error) {
	body, err := c.do(ctx, "about", http.MethodGet, "/v1/about", nil)
	if err != nil {
		return nil, err
	}
	var about About
	if err := json.Unmarshal(body, &about); err != nil {
		return nil, &GatewayError{Op: "about", Err: errors.Wrap(err, "decode response")}
	}
	return &about, nil
}

// FetchPending returns the packets queued at the gateway since the last call,
// in gateway order.
func (c *Client) FetchPending(ctx context.Context) ([]RawMessage, error) {
	body, err := c.do(ctx, "receive", http.MethodGet, "/v1/receive/{number}", nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var packets []json.RawMessage
	if err := json.Unmarshal(body, &packets); err != nil {
		return nil, &GatewayError{Op: "receive", Err: errors.Wrap(err, "decode response")}
	}
	out := make([]RawMessage, len(packets))
	for i, p := range packets {
		out[i] = RawMessage(p)
	}
	return out, nil
}

// OpenStream connects to the websocket receive endpoint of a gateway running
// in json-rpc mode. The stream is closed when ctx is cancelled.
func (c *Client) OpenStream(ctx context.Context) (Stream, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	target := u.String() + strings.ReplaceAll("/v1/receive/{number}", "{number}", url.QueryEscape(c.number))

	conn, resp, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		gerr := &GatewayError{Op: "stream", Err: err}
		if resp != nil {
			gerr.Status = resp.StatusCode
			_ = resp.Body.Close()
		}
		return nil, gerr
	}
	s := &wsStream{conn: conn, keepAlive: c.keepAlive, done: make(chan struct{})}
	_ = conn.SetReadDeadline(time.Now().Add(s.keepAlive))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.keepAlive))
	})
	s.stop = context.AfterFunc(ctx, func() { _ = conn.Close() })
	go s.ping()
	return s, nil
}

const writeWait = 10 * time.Second

type wsStream struct {
	conn      *websocket.Conn
	keepAlive time.Duration
	stop      func() bool
	done      chan struct{}
	closeOnce sync.Once
}

// ping keeps the connection observable: a peer that stops answering lets the
// read deadline expire and Next fails.
func (s *wsStream) ping() {
	ticker := time.NewTicker(s.keepAlive * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *wsStream) Next() (RawMessage, error) {
	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, &GatewayError{Op: "stream", Err: err}
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.keepAlive))
		if typ == websocket.TextMessage {
			return RawMessage(data), nil
		}
	}
}

func (s *wsStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.stop()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

type sendRequest struct {
	Number            string   `json:"number"`
	Recipients        []string `json:"recipients"`
	Message           string   `json:"message,omitempty"`
	Base64Attachments []string `json:"base64_attachments,omitempty"`
}

// SendMessage posts a text message. Failures are returned, never retried.
func (c *Client) SendMessage(ctx context.Context, to Identifier, text string) error {
	_, err := c.do(ctx, "send", http.MethodPost, "/v2/send", sendRequest{
		Number:     c.number,
		Recipients: []string{to.String()},
		Message:    text,
	})
	return err
}

// SendAttachment posts a single file as a base64 attachment.
func (c *Client) SendAttachment(ctx context.Context, to Identifier, data []byte) error {
	_, err := c.do(ctx, "send", http.MethodPost, "/v2/send", sendRequest{
		Number:            c.number,
		Recipients:        []string{to.String()},
		Base64Attachments: []string{base64.StdEncoding.EncodeToString(data)},
	})
	return err
}

// SetTyping shows (on) or clears the typing indicator.
func (c *Client) SetTyping(ctx context.Context, to Identifier, on bool) error {
	method := http.MethodDelete
	if on {
		method = http.MethodPut
	}
	_, err := c.do(ctx, "typing", method, "/v1/typing-indicator/{number}", map[string]string{
		"recipient": to.String(),
	})
	return err
}

// React sends or, with an empty emoji, removes a reaction.
func (c *Client) React(ctx context.Context, to Identifier, r Reaction) error {
	method := http.MethodDelete
	if r.Emoji != "" {
		method = http.MethodPost
	}
	_, err := c.do(ctx, "reaction", method, "/v1/reactions/{number}", map[string]any{
		"reaction":      r.Emoji,
		"recipient":     to.String(),
		"target_author": r.TargetAuthor.String(),
		"timestamp":     r.Timestamp,
	})
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s request", op)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &GatewayError{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "read response")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(raw)),
			Err:    errors.Errorf("unexpected status %s", resp.Status),
		}
	}
	return raw, nil
}
