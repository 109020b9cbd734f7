// Package metrics exposes Prometheus collectors for glyphpack builds and the
// daemon's RPC surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RowanDark/glyphpack/internal/record"
)

const namespace = "glyphpack"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	builds      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	inputBytes  prometheus.Histogram
	duration    *prometheus.HistogramVec
	rpcRequests *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Completed encodings by payload type.",
		}, []string{"ptype"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_failures_total",
			Help:      "Aborted builds by the stage that failed.",
		}, []string{"stage"}),
		inputBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_bytes",
			Help:      "Size of raw inputs accepted for encoding.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each build stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC requests handled by glyphpackd.",
		}, []string{"method", "code"}),
		gatherer: reg,
	}
	reg.MustRegister(m.builds, m.failures, m.inputBytes, m.duration, m.rpcRequests)
	return m
}

// PayloadTypeLabel bounds label cardinality: unknown payload types are
// reported as "other".
func PayloadTypeLabel(ptype string) string {
	if record.IsKnownPayloadType(ptype) {
		return ptype
	}
	return "other"
}

func (m *Metrics) ObserveBuild(ptype string, inputSize int) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(PayloadTypeLabel(ptype)).Inc()
	m.inputBytes.Observe(float64(inputSize))
}

func (m *Metrics) ObserveFailure(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveRPC(method, code string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, code).Inc()
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
