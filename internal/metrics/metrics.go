// Package metrics exposes prometheus collectors for the aggregation loop,
// the websocket session layer and the limit-order pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshTotal counts completed refresh attempts per pair and outcome.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbook_refresh_total",
			Help: "Total number of order book refresh attempts",
		},
		[]string{"pair", "outcome"},
	)

	// FetchErrors counts adapter failures by venue and error kind.
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbook_fetch_errors_total",
			Help: "Total number of exchange fetch failures",
		},
		[]string{"exchange", "kind"},
	)

	// BookDepth tracks the level count of the latest published book.
	BookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orderbook_depth_levels",
			Help: "Number of levels in the latest merged book",
		},
		[]string{"pair", "side"},
	)

	// WSMessages counts handled websocket messages per endpoint and outcome.
	WSMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbook_ws_messages_total",
			Help: "Total number of websocket messages handled",
		},
		[]string{"endpoint", "outcome"},
	)

	// WSHandlerDuration observes per-message handler latency.
	WSHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderbook_ws_handler_duration_seconds",
			Help:    "Wall-clock latency of websocket message handlers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// TasksProcessed counts background tasks by name and outcome.
	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbook_tasks_processed_total",
			Help: "Total number of background tasks processed",
		},
		[]string{"task", "outcome"},
	)
)
