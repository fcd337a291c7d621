// Package metrics exposes Prometheus counters for migration jobs and the
// HTTP surface. All collectors register on the default registry and are
// scraped through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsStarted counts migration jobs accepted by the supervisor.
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subsync_jobs_started_total",
		Help: "Number of migration jobs started.",
	})

	// JobsFinished counts jobs that reached a terminal state, by status.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subsync_jobs_finished_total",
		Help: "Number of migration jobs finished, labeled by terminal status.",
	}, []string{"status"})

	// RowsResolved counts processed rows by resolution outcome.
	RowsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subsync_rows_resolved_total",
		Help: "Number of rows resolved, labeled by outcome.",
	}, []string{"outcome"})

	// HTTPRequestDuration tracks request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "subsync_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
