// Package observability exposes Prometheus metrics for the assistant backend.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector of the service on a private registry so that
// tests can build as many instances as they like.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	mem := memory.NewManager(memory.WithObserver(metrics))
//	svc := ai.NewService(cfg, mem, ai.WithCompletionObserver(metrics))
//	mux.Handle("/metrics", metrics.Handler())
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequests counts API requests. Labels: route, status_code
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration measures API latency in seconds. Labels: route
	HTTPRequestDuration *prometheus.HistogramVec

	// Completions counts completion calls. Labels: model, status (success|error)
	Completions *prometheus.CounterVec

	// CompletionDuration measures completion latency in seconds. Labels: model
	CompletionDuration *prometheus.HistogramVec

	// ExchangesRecorded counts user/assistant pairs committed to memory.
	ExchangesRecorded prometheus.Counter

	// SessionsEvictedTotal counts sessions dropped for inactivity.
	SessionsEvictedTotal prometheus.Counter

	// StoredSessions is the number of sessions currently held in memory.
	StoredSessions prometheus.Gauge
}

// NewMetrics creates and registers all collectors, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clara_http_requests_total",
				Help: "Total number of API requests by route and status code",
			},
			[]string{"route", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clara_http_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"route"},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clara_completions_total",
				Help: "Total number of completion calls by model and status",
			},
			[]string{"model", "status"},
		),
		CompletionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clara_completion_duration_seconds",
				Help:    "Duration of completion calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		ExchangesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clara_exchanges_recorded_total",
			Help: "Total number of exchanges committed to conversational memory",
		}),
		SessionsEvictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clara_sessions_evicted_total",
			Help: "Total number of sessions evicted after inactivity",
		}),
		StoredSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clara_sessions_stored",
			Help: "Number of sessions currently held in memory",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.Completions,
		m.CompletionDuration,
		m.ExchangesRecorded,
		m.SessionsEvictedTotal,
		m.StoredSessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished API request.
func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// CompletionFinished implements ai.CompletionObserver.
func (m *Metrics) CompletionFinished(model string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.Completions.WithLabelValues(model, status).Inc()
	m.CompletionDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ExchangeRecorded implements memory.Observer.
func (m *Metrics) ExchangeRecorded(storedSessions int) {
	m.ExchangesRecorded.Inc()
	m.StoredSessions.Set(float64(storedSessions))
}

// SessionsEvicted implements memory.Observer.
func (m *Metrics) SessionsEvicted(n int) {
	m.SessionsEvictedTotal.Add(float64(n))
	m.StoredSessions.Sub(float64(n))
}
