package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/providers"
)

// GeneratorMetrics tracks calls to the response generation backend.
//
// Metrics:
//   - kyosan_ethics_generator_duration_seconds: call latency
//   - kyosan_ethics_generator_errors_total: failed calls by error type
type GeneratorMetrics struct {
	duration prometheus.Histogram
	errors   *prometheus.CounterVec
}

// NewGeneratorMetrics creates and registers generator metrics.
func NewGeneratorMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GeneratorMetrics {
	gm := &GeneratorMetrics{
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "generator_duration_seconds",
				Help:      "Duration of response generator calls in seconds",
				// Chat completions: 100ms to 60s
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "generator_errors_total",
				Help:      "Total number of failed response generator calls",
			},
			[]string{"error_type"},
		),
	}

	registry.MustRegister(gm.duration, gm.errors)
	return gm
}

// RecordCall records one generator call and, if it failed, its error type.
func (gm *GeneratorMetrics) RecordCall(d time.Duration, err error) {
	gm.duration.Observe(d.Seconds())
	if err != nil {
		gm.errors.WithLabelValues(ErrorType(err)).Inc()
	}
}

// ErrorType classifies a generator error for the error_type label.
func ErrorType(err error) string {
	var (
		authErr    *providers.AuthError
		rateErr    *providers.RateLimitError
		timeoutErr *providers.TimeoutError
		parseErr   *providers.ParseError
		configErr  *providers.ConfigError
		provErr    *providers.ProviderError
	)
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &rateErr):
		return "rate_limit"
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &provErr):
		return "provider"
	default:
		return "unknown"
	}
}
