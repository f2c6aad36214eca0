package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/kyosan/pkg/config"
)

// otherLabel replaces label values once the cardinality limit is reached.
const otherLabel = "other"

// Collector owns the Prometheus registry and every metric the service
// exports. It implements compliance.Observer and orchestrator.Observer, so it
// can be passed directly to both.
//
// All Record and Observe methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	pipeline  *PipelineMetrics
	plugins   *PluginMetrics
	requests  *RequestMetrics
	generator *GeneratorMetrics

	// routes bounds the number of distinct HTTP route labels.
	routes *CardinalityLimiter
}

// NewCollector creates a collector registering into registry. A nil registry
// gets a fresh one.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		pipeline:  NewPipelineMetrics(cfg, registry),
		plugins:   NewPluginMetrics(cfg, registry),
		requests:  NewRequestMetrics(cfg, registry),
		generator: NewGeneratorMetrics(cfg, registry),
		routes:    NewCardinalityLimiter(100),
	}
}

// ObserveStage records one law stage verdict.
func (c *Collector) ObserveStage(law, status string) {
	if !c.config.Enabled {
		return
	}
	c.pipeline.RecordStage(law, status)
}

// ObserveBlocked records a request blocked by law in the given phase
// ("input" or "output").
func (c *Collector) ObserveBlocked(law, phase string) {
	if !c.config.Enabled {
		return
	}
	c.pipeline.RecordBlocked(law, phase)
}

// ObserveFault records a pipeline run that ended in the safe default.
func (c *Collector) ObserveFault() {
	if !c.config.Enabled {
		return
	}
	c.pipeline.RecordFault()
}

// ObserveGeneration records one response generator call.
func (c *Collector) ObserveGeneration(d time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.generator.RecordCall(d, err)
}

// ObservePlugin records one plugin invocation. kind is "ok" or the fault
// kind.
func (c *Collector) ObservePlugin(plugin, kind string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.plugins.RecordInvocation(plugin, kind, d)
}

// ObserveProcess records one orchestration.
func (c *Collector) ObserveProcess(level, disposition string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requests.RecordProcess(level, disposition, d)
}

// RecordHTTPRequest records one served HTTP request. Routes beyond the
// cardinality limit are aggregated as "other".
func (c *Collector) RecordHTTPRequest(method, route string, code int, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.routes.Allow(method + " " + route) {
		route = otherLabel
	}
	c.requests.RecordHTTP(method, route, code, d)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of unique label sets.
type CardinalityLimiter struct {
	max     int
	current map[string]struct{}
	mu      sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting up to max label sets.
func NewCardinalityLimiter(max int) *CardinalityLimiter {
	return &CardinalityLimiter{
		max:     max,
		current: make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	_, exists := cl.current[labelSet]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.max {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the number of admitted label sets.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
