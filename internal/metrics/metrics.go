package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsconsole_feed_requests_total",
		Help: "Activity feed page requests, labelled by outcome (ok, partial, invalid, failed, cancelled).",
	}, []string{"outcome"})

	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsconsole_feed_source_failures_total",
		Help: "Event source calls that failed or timed out, labelled by source and call.",
	}, []string{"source", "call", "reason"})

	SourceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opsconsole_feed_source_duration_seconds",
		Help:    "Latency of event source calls, labelled by source and call (fetch, count).",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"source", "call"})

	FeedWindowSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opsconsole_feed_window_rows",
		Help:    "Per-source overfetch window requested for a feed page.",
		Buckets: prometheus.ExponentialBuckets(10, 2, 11),
	})

	HitsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsconsole_tracking_hits_total",
		Help: "Route visits handled by the tracking middleware, labelled by status (recorded, failed).",
	}, []string{"status"})

	RowsPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsconsole_rows_pruned_total",
		Help: "Rows removed by retention pruning, labelled by store.",
	}, []string{"store"})
)
