package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	registry *prometheus.Registry

	requests   prometheus.Counter
	errors     *prometheus.CounterVec
	operations *prometheus.HistogramVec

	systemStartTime time.Time
}

// NewMetricsCollector builds a collector on its own registry so tests can
// create as many as they like without duplicate registration panics.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	mc := &MetricsCollector{
		registry: reg,
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devoverflow",
			Name:      "requests_total",
			Help:      "Requests handled by the engine.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devoverflow",
			Name:      "errors_total",
			Help:      "Failed operations by error kind.",
		}, []string{"kind"}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devoverflow",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		systemStartTime: time.Now(),
	}

	reg.MustRegister(
		mc.requests,
		mc.errors,
		mc.operations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return mc
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.requests.Inc()
}

// IncrementErrors counts a failure under the kind of its AppError.
func (mc *MetricsCollector) IncrementErrors(err error) {
	kind := ErrInternal
	if appErr := AsAppError(err); appErr != nil {
		kind = appErr.Code
	}
	mc.errors.WithLabelValues(kind).Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.operations.WithLabelValues(operationName).Observe(duration.Seconds())
}

func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.systemStartTime)
}

// Registry exposes the underlying registry, mostly for tests.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// Handler serves the registry in the Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry})
}
