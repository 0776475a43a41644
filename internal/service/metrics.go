package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "foodwaste"

// Metrics owns a private registry so several services can coexist in one
// process (tests create many).
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	inferenceErrors    *prometheus.CounterVec
	requestDuration    prometheus.Histogram
	inferenceDuration  *prometheus.HistogramVec
	inflight           prometheus.Gauge
	lastPrediction     prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Predict requests by HTTP status code.",
			},
			[]string{"code"},
		),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "validation_failures_total",
				Help:      "Rejected request fields by field name.",
			},
			[]string{"field"},
		),
		inferenceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "inference_errors_total",
				Help:      "Failed transform or predict calls by backend.",
			},
			[]string{"backend"},
		),
		requestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end predict request latency.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		inferenceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "inference_duration_seconds",
				Help:      "Scaler plus model latency by backend.",
				Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"backend"},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "inflight_requests",
				Help:      "Predict requests currently being served.",
			},
		),
		lastPrediction: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "last_prediction",
				Help:      "Most recent rounded prediction.",
			},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordRequestStart() {
	m.inflight.Inc()
}

func (m *Metrics) RecordRequestDone(statusCode int, latency time.Duration) {
	m.inflight.Dec()
	m.requestsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	m.requestDuration.Observe(latency.Seconds())
}

func (m *Metrics) RecordValidationFailure(fields []string) {
	for _, field := range fields {
		m.validationFailures.WithLabelValues(field).Inc()
	}
}

func (m *Metrics) RecordInference(backend string, latency time.Duration, prediction float64, err error) {
	m.inferenceDuration.WithLabelValues(backend).Observe(latency.Seconds())
	if err != nil {
		m.inferenceErrors.WithLabelValues(backend).Inc()
		return
	}
	m.lastPrediction.Set(prediction)
}
