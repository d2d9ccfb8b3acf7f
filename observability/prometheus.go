// Package observability provides the concrete backends the
// combinators/observability operators (Trace, Metrics, and — via
// flow.Logger — Log) are written against: PrometheusCounter,
// OTLPTracer, and NewZerologLogger.
package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCounter implements combinators/observability.Counter,
// grounded on the teacher's pkg/middleware/observability/prometheus.go
// PrometheusProvider: one counter vector for success/failure and one
// paired histogram for durations, both labeled by flow name —
// SPEC_FULL.md §C folds original_source's performance.py duration
// histogram into this rather than a separate type.
type PrometheusCounter struct {
	registry   *prometheus.Registry
	results    *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// PrometheusOption configures a PrometheusCounter, mirroring the
// teacher's functional-options PrometheusOption.
type PrometheusOption func(*PrometheusCounter)

// WithDurationBuckets sets custom histogram buckets for item-processing
// duration.
func WithDurationBuckets(buckets []float64) PrometheusOption {
	return func(p *PrometheusCounter) {
		p.durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowengine_item_duration_seconds",
			Help:    "Per-item processing duration for a flow.",
			Buckets: buckets,
		}, []string{"flow"})
	}
}

// WithPrometheusRegistry uses an existing Prometheus registry instead of
// creating a fresh one.
func WithPrometheusRegistry(registry *prometheus.Registry) PrometheusOption {
	return func(p *PrometheusCounter) {
		p.registry = registry
	}
}

// NewPrometheusCounter builds a PrometheusCounter with Go runtime
// collectors registered by default, matching the teacher's
// NewPrometheusProvider.
func NewPrometheusCounter(opts ...PrometheusOption) *PrometheusCounter {
	p := &PrometheusCounter{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowengine_items_total",
			Help: "Total items processed by a flow, by outcome.",
		}, []string{"flow", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowengine_item_duration_seconds",
			Help:    "Per-item processing duration for a flow.",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, c := range []prometheus.Collector{p.results, p.durations, collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})} {
		if err := p.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
			switch existing := are.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				p.results = existing
			case *prometheus.HistogramVec:
				p.durations = existing
			}
		}
	}
	return p
}

// IncSuccess implements combinators/observability.Counter.
func (p *PrometheusCounter) IncSuccess(flowName string) {
	p.results.WithLabelValues(flowName, "success").Inc()
}

// IncFailure implements combinators/observability.Counter.
func (p *PrometheusCounter) IncFailure(flowName string) {
	p.results.WithLabelValues(flowName, "failure").Inc()
}

// ObserveDuration implements combinators/observability.Counter.
func (p *PrometheusCounter) ObserveDuration(flowName string, seconds float64) {
	p.durations.WithLabelValues(flowName).Observe(seconds)
}

// Handler returns an HTTP handler serving /metrics for Prometheus to
// scrape.
func (p *PrometheusCounter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusCounter) Registry() *prometheus.Registry {
	return p.registry
}
