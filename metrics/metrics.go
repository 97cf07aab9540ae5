// Package metrics exposes Prometheus instrumentation for the notification
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coursewire/coursewire-go/types"
)

var (
	// ConnectionState tracks the current push channel state, one gauge per
	// state with exactly one set to 1.
	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coursewire_connection_state",
			Help: "Current push channel connection state (1 for the active state)",
		},
		[]string{"state"},
	)

	// MessagesReceived counts push messages delivered over the channel.
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coursewire_push_messages_received_total",
			Help: "Total number of push messages received",
		},
	)

	// DuplicateDeliveries counts pushed notifications whose id was already
	// present in the inbox.
	DuplicateDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coursewire_push_duplicate_deliveries_total",
			Help: "Total number of pushed notifications that updated an existing entry",
		},
	)

	// ReconnectAttempts counts reconnect attempts made by the channel.
	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coursewire_channel_reconnect_attempts_total",
			Help: "Total number of push channel reconnect attempts",
		},
	)

	// MutationFailures counts mark-read calls that failed on the server
	// while local state was kept optimistically.
	MutationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coursewire_mutation_failures_total",
			Help: "Total number of failed read-state mutation calls",
		},
	)

	// HydrationDuration tracks the duration of the initial inbox fetch.
	HydrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursewire_hydration_duration_seconds",
			Help:    "Duration of the initial notification fetch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var allStates = []types.ConnectionState{
	types.ConnectionDisconnected,
	types.ConnectionConnecting,
	types.ConnectionConnected,
	types.ConnectionError,
}

// SetConnectionState records the channel state, clearing all other states.
func SetConnectionState(state types.ConnectionState) {
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		ConnectionState.WithLabelValues(s.String()).Set(v)
	}
}
