// Package metrics declares the Prometheus collectors for the party server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedClients tracks the number of live websocket connections.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "party_connected_clients",
			Help: "Current number of connected websocket clients",
		},
	)

	// EventsTotal tracks processed client events by type and outcome.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "party_events_total",
			Help: "Client events processed by type and status (applied/dropped)",
		},
		[]string{"type", "status"},
	)

	// SlowClientsEvicted tracks clients disconnected for not draining
	// their send buffer.
	SlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "party_slow_clients_evicted_total",
			Help: "Clients evicted because their send buffer was full",
		},
	)

	// BroadcastDuration tracks how long one fan-out pass takes.
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "party_broadcast_duration_seconds",
			Help:    "Duration of one broadcast fan-out pass in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// MessageSendDuration tracks individual websocket frame write latency.
	MessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "party_ws_message_send_duration_seconds",
			Help:    "WebSocket frame write duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)

	// PingFailures tracks failed keepalive pings.
	PingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "party_ws_ping_failures_total",
			Help: "Failed websocket keepalive pings",
		},
	)
)
