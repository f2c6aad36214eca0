package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/kyosan/pkg/config"
)

// PipelineMetrics tracks the compliance pipeline.
//
// Metrics:
//   - kyosan_ethics_stage_verdicts_total: stage verdicts by law and status
//   - kyosan_ethics_blocked_requests_total: blocked requests by law and phase
//   - kyosan_ethics_pipeline_faults_total: runs that fell back to the safe default
type PipelineMetrics struct {
	stageVerdicts *prometheus.CounterVec
	blocked       *prometheus.CounterVec
	faults        prometheus.Counter
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	pm := &PipelineMetrics{
		stageVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stage_verdicts_total",
				Help:      "Total number of law stage verdicts",
			},
			[]string{"law", "status"},
		),

		blocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "blocked_requests_total",
				Help:      "Total number of requests blocked by a law",
			},
			[]string{"law", "phase"},
		),

		faults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pipeline_faults_total",
				Help:      "Total number of pipeline runs that failed and returned the safe default",
			},
		),
	}

	registry.MustRegister(pm.stageVerdicts, pm.blocked, pm.faults)
	return pm
}

// RecordStage records a stage verdict.
func (pm *PipelineMetrics) RecordStage(law, status string) {
	pm.stageVerdicts.WithLabelValues(law, status).Inc()
}

// RecordBlocked records a blocked request.
func (pm *PipelineMetrics) RecordBlocked(law, phase string) {
	pm.blocked.WithLabelValues(law, phase).Inc()
}

// RecordFault records a pipeline fault.
func (pm *PipelineMetrics) RecordFault() {
	pm.faults.Inc()
}
