package policyapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes used as the "outcome" label.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// metrics owns a private registry so several components can coexist in
// one process and in tests.
type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	generations *prometheus.CounterVec
	renderTime  prometheus.Histogram
}

func newMetrics(sessions func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nsepolicy",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"code", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nsepolicy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nsepolicy",
			Name:      "generations_total",
			Help:      "PDF generations by outcome.",
		}, []string{"outcome"}),
		renderTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nsepolicy",
			Name:      "generation_duration_seconds",
			Help:      "Time spent composing and rendering a policy document.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.latency,
		m.generations,
		m.renderTime,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "nsepolicy",
			Name:      "sessions",
			Help:      "Live composition sessions.",
		}, sessions),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *metrics) instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(m.latency,
		promhttp.InstrumentHandlerCounter(m.requests, next))
}

func (m *metrics) observeGeneration(outcome string, seconds float64) {
	m.generations.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.renderTime.Observe(seconds)
	}
}
