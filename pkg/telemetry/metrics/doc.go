// Package metrics exports Prometheus metrics for the ethics service.
//
// A single Collector is created at startup and handed to the compliance
// pipeline and the orchestrator as their Observer, and to the HTTP
// middleware for request metrics:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	pipeline, _ := compliance.New(compliance.Options{Store: store, Observer: collector})
//	orch, _ := orchestrator.New(orchestrator.Options{Pipeline: pipeline, Observer: collector})
//
//	mux.Handle("/metrics", collector.Handler())
//
// Metric names are prefixed with the configured namespace and subsystem
// (kyosan_ethics_ by default). Label values come from closed sets (law
// names, dispositions, levels, plugin names) except HTTP routes, which are
// capped by a CardinalityLimiter.
package metrics
