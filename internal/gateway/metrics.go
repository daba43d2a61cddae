package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"strings"
	"time"
)

const metricsNamespace = "reservation_console"

// Metrics observes every backend call made through a Gateway
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the gateway metrics and registers them at the given registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Backend calls by method, endpoint and outcome.",
		}, []string{"method", "endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	registerer.MustRegister(metrics.requests, metrics.duration)
	return metrics
}

func (metrics *Metrics) observe(method, path, outcome string, took time.Duration) {
	if metrics == nil {
		return
	}
	metrics.requests.WithLabelValues(method, endpointLabel(path), outcome).Inc()
	metrics.duration.WithLabelValues(method).Observe(took.Seconds())
}

// endpointLabel reduces a path to its first segment to keep label cardinality bounded ('/machines/m1' -> '/machines')
func endpointLabel(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	first, _, _ := strings.Cut(trimmed, "/")
	return "/" + first
}
