// Package metrics exposes the reasoning core's Prometheus collectors:
// stream queue depth, embedding throttle wait, and resource-monitor
// pool health, scraped at /metrics (spec §6 ambient observability).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds this process's collectors, kept separate from the
// default global registry so tests can construct throwaway instances.
var Registry = prometheus.NewRegistry()

var (
	streamQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "reasoner",
			Subsystem: "stream",
			Name:      "queue_depth",
			Help:      "Number of buffered events waiting to be drained from a stream orchestrator.",
		},
		[]string{"session_id"},
	)

	embeddingThrottleWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reasoner",
			Subsystem: "retrieval",
			Name:      "embedding_throttle_wait_seconds",
			Help:      "Time spent waiting for an embedding throttle permit.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	embeddingThrottleQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reasoner",
			Subsystem: "retrieval",
			Name:      "embedding_throttle_queue_depth",
			Help:      "Number of callers currently waiting for an embedding throttle permit.",
		},
	)

	resourcePoolHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reasoner",
			Subsystem: "resourcemon",
			Name:      "pool_healthy",
			Help:      "Whether the most recent resource monitor snapshot was healthy (1) or not (0).",
		},
	)

	resourceRAMPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reasoner",
			Subsystem: "resourcemon",
			Name:      "ram_percent",
			Help:      "Host virtual memory used percent at the last sample.",
		},
	)

	resourceDegraded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reasoner",
			Subsystem: "resourcemon",
			Name:      "degraded",
			Help:      "Whether the process-wide degraded flag is set (1) or clear (0).",
		},
	)
)

func init() {
	Registry.MustRegister(
		streamQueueDepth,
		embeddingThrottleWait,
		embeddingThrottleQueueDepth,
		resourcePoolHealthy,
		resourceRAMPercent,
		resourceDegraded,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler serves the registered collectors for a Prometheus scrape.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetStreamQueueDepth records the current buffered-event count for one
// session's stream orchestrator.
func SetStreamQueueDepth(sessionID string, depth int) {
	if sessionID == "" {
		sessionID = "unknown"
	}
	streamQueueDepth.WithLabelValues(sessionID).Set(float64(depth))
}

// DeleteStreamQueueDepth removes a finished session's queue-depth series
// so the gauge doesn't accumulate one label per historical request.
func DeleteStreamQueueDepth(sessionID string) {
	if sessionID == "" {
		sessionID = "unknown"
	}
	streamQueueDepth.DeleteLabelValues(sessionID)
}

// ObserveEmbeddingThrottleWait records how long a caller waited for a
// throttle permit.
func ObserveEmbeddingThrottleWait(seconds float64) {
	embeddingThrottleWait.Observe(seconds)
}

// SetEmbeddingThrottleQueueDepth records the current waiter count.
func SetEmbeddingThrottleQueueDepth(depth int64) {
	embeddingThrottleQueueDepth.Set(float64(depth))
}

// RecordResourceStatus publishes the resource monitor's latest snapshot.
func RecordResourceStatus(ramPercent float64, healthy, degraded bool) {
	resourceRAMPercent.Set(ramPercent)
	if healthy {
		resourcePoolHealthy.Set(1)
	} else {
		resourcePoolHealthy.Set(0)
	}
	if degraded {
		resourceDegraded.Set(1)
	} else {
		resourceDegraded.Set(0)
	}
}
