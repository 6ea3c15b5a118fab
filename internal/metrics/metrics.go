// Package metrics provides Prometheus metrics for the DAV server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "davsync"

var (
	// Requests counts handled requests by method and status code.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total DAV requests handled",
		},
		[]string{"method", "code"},
	)

	// RequestDuration tracks request latency per method.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "DAV request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ItemsWritten counts stored calendar objects and vCards.
	ItemsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "items_written_total",
			Help:      "Total items created or replaced",
		},
		[]string{"kind"}, // kind: calendar or addressbook
	)
)

// Reset zeroes every series. The vectors stay registered.
func Reset() {
	Requests.Reset()
	RequestDuration.Reset()
	ItemsWritten.Reset()
}
