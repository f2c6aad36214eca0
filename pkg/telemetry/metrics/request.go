package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/kyosan/pkg/config"
)

// RequestMetrics tracks orchestrations and HTTP traffic.
//
// Metrics:
//   - kyosan_ethics_requests_total: orchestrations by level and disposition
//   - kyosan_ethics_request_duration_seconds: orchestration duration by level
//   - kyosan_ethics_http_requests_total: HTTP requests by method, route and code
//   - kyosan_ethics_http_request_duration_seconds: HTTP duration by method and route
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	httpTotal       *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of processed requests",
			},
			[]string{"level", "disposition"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of request processing in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"level"},
		),

		httpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "route", "code"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.httpTotal, rm.httpDuration)
	return rm
}

// RecordProcess records one orchestration.
func (rm *RequestMetrics) RecordProcess(level, disposition string, d time.Duration) {
	rm.requestsTotal.WithLabelValues(level, disposition).Inc()
	rm.requestDuration.WithLabelValues(level).Observe(d.Seconds())
}

// RecordHTTP records one HTTP request.
func (rm *RequestMetrics) RecordHTTP(method, route string, code int, d time.Duration) {
	rm.httpTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	rm.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
