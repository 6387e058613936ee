// Package metrics holds the Prometheus instruments of the service. All
// collectors are registered with the default registry and exposed by the
// serve command on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SearchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmcsa_search_requests_total",
			Help: "Record searches by outcome (ok, error).",
		}, []string{"outcome"})

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fmcsa_search_duration_seconds",
			Help:    "Store round trip time of a record search.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"})

	SearchMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fmcsa_search_matches",
			Help:    "Total matching records per successful search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		})

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmcsa_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"})

	SeededRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fmcsa_seed_records",
			Help: "Number of records written by the last seed run.",
		})
)

func init() {
	prometheus.MustRegister(
		SearchRequests,
		SearchDuration,
		SearchMatches,
		HTTPRequests,
		SeededRecords,
	)
}
