// Package observability exposes the Prometheus instrumentation used across
// the service. Metrics carry a "mode" label naming the active pipeline mode.
package observability

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var modeLabel atomic.Value

func init() {
	modeLabel.Store("baseline")
}

func SetMode(m string) {
	if m == "" {
		m = "baseline"
	}
	modeLabel.Store(m)
}

func getMode() string {
	if v := modeLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "baseline"
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status", "mode"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status", "mode"},
	)

	computeDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "index_compute_duration_seconds",
			Help:    "Duration of per-scene index computations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"index"},
	)

	computePixelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_compute_pixels_total",
			Help: "Pixels evaluated by the index engine.",
		},
		[]string{"index"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "mode"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Product cache results by outcome.",
		},
		[]string{"outcome", "mode"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of cache store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "result"},
	)

	invalidationEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidation_events_total",
			Help: "Invalidation events by processing result.",
		},
		[]string{"result"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	m := getMode()
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st, m).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st, m).Observe(durationSeconds)
}

func ObserveCompute(index string, pixels int, durationSeconds float64) {
	computeDurationSeconds.WithLabelValues(index).Observe(durationSeconds)
	computePixelsTotal.WithLabelValues(index).Add(float64(pixels))
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, getMode()).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpDurationSeconds.WithLabelValues(op, result).Observe(durationSeconds)
}

func IncCacheHit() {
	cacheResults.WithLabelValues("hit", getMode()).Inc()
}

func IncCacheMiss() {
	cacheResults.WithLabelValues("miss", getMode()).Inc()
}

func IncInvalidation(result string) {
	invalidationEventsTotal.WithLabelValues(result).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
