// Package metrics holds the Prometheus collectors of the gateway and the
// small HTTP server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "signal_gateway"

// Drop reasons used with InboundDropped.
const (
	ReasonMalformed      = "malformed"
	ReasonHiddenSender   = "hidden_sender"
	ReasonNotWhitelisted = "not_whitelisted"
	ReasonDuplicate      = "duplicate"
	ReasonSelf           = "self"
)

var (
	InboundReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_received_total",
			Help:      "Raw packets received from the REST gateway.",
		},
		[]string{"mode"}, // polling, streaming
	)

	InboundDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_delivered_total",
			Help:      "Inbound messages handed to the message bus.",
		},
		[]string{"kind"},
	)

	InboundDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_dropped_total",
			Help:      "Inbound packets dropped before dispatch.",
		},
		[]string{"reason"},
	)

	FetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed receive requests in polling mode.",
		},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of receive requests in polling mode.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Reconnect attempts of the receive stream.",
		},
	)

	OutboundSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_sends_total",
			Help:      "Outbound requests to the REST gateway.",
		},
		[]string{"op", "status"}, // status: ok, error, unresolved
	)
)
