// Package metrics exposes Prometheus instrumentation for the assistant:
// token consumption, request latency and error counts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors and their registry.
type Metrics struct {
	registry        *prometheus.Registry
	tokenCounter    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCounter    *prometheus.CounterVec
}

// New creates the registry and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		tokenCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clawbot_tokens_total",
			Help: "Total number of tokens processed",
		}, []string{"model", "type"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clawbot_request_duration_seconds",
			Help:    "Duration of model completion requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),
		errorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clawbot_errors_total",
			Help: "Total number of errors",
		}, []string{"type"}),
	}
	reg.MustRegister(m.tokenCounter, m.requestDuration, m.errorCounter)
	return m
}

// ObserveRequest records the duration of one completion request.
func (m *Metrics) ObserveRequest(model string, d time.Duration) {
	m.requestDuration.WithLabelValues(model).Observe(d.Seconds())
}

// AddTokens records prompt and completion token counts.
func (m *Metrics) AddTokens(model string, prompt, completion int) {
	m.tokenCounter.WithLabelValues(model, "input").Add(float64(prompt))
	m.tokenCounter.WithLabelValues(model, "output").Add(float64(completion))
}

// IncError counts one error of the given kind.
func (m *Metrics) IncError(kind string) {
	m.errorCounter.WithLabelValues(kind).Inc()
}

// Handler returns the /metrics exposition handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
