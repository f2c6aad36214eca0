// Package telemetry groups the service's observability packages.
//
//   - logging: log/slog setup with context fields and PII redaction
//   - metrics: Prometheus metrics for the pipeline, plugins, generator and HTTP
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: component checks behind /api/health and /readyz
//
// The run command builds each of them from config.TelemetryConfig and hands
// them to the components that report through them. Raw user input is never
// logged or attached to spans; the decision audit trail stores only its hash.
package telemetry
