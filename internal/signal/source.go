package signal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fpt/signal-gateway/internal/metrics"
	pkgLogger "github.com/fpt/signal-gateway/pkg/logger"
)

var errConsumerStopped = errors.New("consumer stopped")

// EmitFunc receives every raw packet in gateway order. A non-nil error stops
// the source; it is only returned when the consumer is shutting down.
type EmitFunc func(ctx context.Context, raw RawMessage) error

// Source produces raw packets from the gateway until ctx is cancelled.
type Source interface {
	Mode() DeliveryMode
	Run(ctx context.Context, emit EmitFunc) error
}

// NewSource returns the variant for mode. The choice is final for the
// lifetime of the returned value.
func NewSource(mode DeliveryMode, cfg *Config, client GatewayClient, logger *pkgLogger.Logger) Source {
	return newSource(mode, cfg, client, logger, realClock{})
}

func newSource(mode DeliveryMode, cfg *Config, client GatewayClient, logger *pkgLogger.Logger, clk clock) Source {
	if mode == ModeStreaming {
		return &streamingSource{
			client: client,
			min:    cfg.ReconnectMin,
			max:    cfg.ReconnectMax,
			clock:  clk,
			logger: logger.WithComponent("signal-stream"),
		}
	}
	return &pollingSource{
		client:   client,
		interval: cfg.Poll(),
		clock:    clk,
		logger:   logger.WithComponent("signal-poll"),
	}
}

// pollingSource fetches a batch, delivers it, then waits a full interval
// before the next fetch. The wait starts after delivery so fetches never overlap.
type pollingSource struct {
	client   GatewayClient
	interval time.Duration
	clock    clock
	logger   *pkgLogger.Logger
}

func (s *pollingSource) Mode() DeliveryMode { return ModePolling }

func (s *pollingSource) Run(ctx context.Context, emit EmitFunc) error {
	s.logger.InfoWithIntention(pkgLogger.IntentionPoll, "Polling gateway", "interval", s.interval)
	for {
		if err := s.fetchAndDeliver(ctx, emit); err != nil {
			return nil
		}
		if !sleep(ctx, s.clock, s.interval) {
			return nil
		}
	}
}

// fetchAndDeliver returns an error only when emit refused a packet.
func (s *pollingSource) fetchAndDeliver(ctx context.Context, emit EmitFunc) error {
	batch := uuid.NewString()
	start := s.clock.Now()
	packets, err := s.client.FetchPending(ctx)
	metrics.FetchDuration.Observe(s.clock.Now().Sub(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.FetchErrors.Inc()
		s.logger.Warn("Failed to fetch pending messages", "error", err, "batch", batch)
		return nil
	}
	if len(packets) > 0 {
		s.logger.DebugWithIntention(pkgLogger.IntentionPoll, "Fetched batch", "batch", batch, "count", len(packets))
	}
	for _, p := range packets {
		metrics.InboundReceived.WithLabelValues(ModePolling.String()).Inc()
		if err := emit(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// streamingSource holds a websocket open and reconnects with bounded
// exponential backoff when it drops.
type streamingSource struct {
	client   GatewayClient
	min, max time.Duration
	clock    clock
	logger   *pkgLogger.Logger
}

func (s *streamingSource) Mode() DeliveryMode { return ModeStreaming }

func (s *streamingSource) Run(ctx context.Context, emit EmitFunc) error {
	backoff := s.min
	for {
		stream, err := s.client.OpenStream(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("Failed to open receive stream", "error", err, "backoff", backoff)
		} else {
			backoff = s.min
			s.logger.InfoWithIntention(pkgLogger.IntentionStream, "Receive stream connected")
			err = s.consume(ctx, stream, emit)
			_ = stream.Close()
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, errConsumerStopped) {
				return nil
			}
			s.logger.Warn("Receive stream dropped", "error", err, "backoff", backoff)
		}

		metrics.StreamReconnects.Inc()
		if !sleep(ctx, s.clock, backoff) {
			return nil
		}
		backoff *= 2
		if backoff > s.max {
			backoff = s.max
		}
	}
}

func (s *streamingSource) consume(ctx context.Context, stream Stream, emit EmitFunc) error {
	for {
		raw, err := stream.Next()
		if err != nil {
			return err
		}
		metrics.InboundReceived.WithLabelValues(ModeStreaming.String()).Inc()
		if err := emit(ctx, raw); err != nil {
			return errors.Wrap(errConsumerStopped, err.Error())
		}
	}
}
