// Package health aggregates component health checks.
//
// Components register a CheckFunc by name; Check runs them concurrently and
// reports "healthy" or "degraded":
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register("evidence", store.Ping)
//
//	mux.HandleFunc("GET /healthz", health.LivenessHandler())
//	mux.HandleFunc("GET /readyz", checker.ReadinessHandler())
//
// The API's /api/health endpoint embeds the same Report alongside plugin
// counts.
package health
