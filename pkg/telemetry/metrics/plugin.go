package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/kyosan/pkg/config"
)

// PluginMetrics tracks auxiliary plugin invocations.
//
// Metrics:
//   - kyosan_ethics_plugin_invocations_total: invocations by plugin and outcome kind
//   - kyosan_ethics_plugin_duration_seconds: invocation duration by plugin
type PluginMetrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewPluginMetrics creates and registers plugin metrics.
func NewPluginMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PluginMetrics {
	pm := &PluginMetrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "plugin_invocations_total",
				Help:      "Total number of plugin invocations",
			},
			[]string{"plugin", "kind"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "plugin_duration_seconds",
				Help:      "Duration of plugin invocations in seconds",
				// Plugins are local text analysis: 10µs to ~80ms
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
			},
			[]string{"plugin"},
		),
	}

	registry.MustRegister(pm.invocations, pm.duration)
	return pm
}

// RecordInvocation records one plugin invocation.
func (pm *PluginMetrics) RecordInvocation(plugin, kind string, d time.Duration) {
	pm.invocations.WithLabelValues(plugin, kind).Inc()
	pm.duration.WithLabelValues(plugin).Observe(d.Seconds())
}
