// Package observability provides logging, metrics, and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts mutation outcomes by action and outcome (ok or an error code).
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marvel_actions_total",
		Help: "Total number of mutation actions by outcome",
	}, []string{"action", "outcome"})

	// UpstreamRequests counts calls to the identity provider and media host.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marvel_upstream_requests_total",
		Help: "Total number of upstream requests by service and outcome",
	}, []string{"service", "outcome"})

	// UpstreamLatency records upstream request latency.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marvel_upstream_latency_seconds",
		Help:    "Upstream request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	// ReconciliationsPending counts reconciliation records queued by step.
	ReconciliationsPending = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marvel_reconciliations_recorded_total",
		Help: "Total number of reconciliation records queued",
	}, []string{"step"})

	// WebSocketConnections is the gauge of open view-revalidation sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marvel_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marvel_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// RecordAction increments ActionsTotal. An empty code is recorded as "ok".
func RecordAction(action, code string) {
	if code == "" {
		code = "ok"
	}
	ActionsTotal.WithLabelValues(action, code).Inc()
}
