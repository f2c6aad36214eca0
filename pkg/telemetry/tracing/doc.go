// Package tracing configures OpenTelemetry tracing.
//
// Spans are exported over OTLP/gRPC. The compliance pipeline, the
// orchestrator and the response generator create their own spans through
// the tracer returned by Tracer.Tracer; the HTTP server wraps every request
// in a server span with Middleware.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Sampling is parent-based over one of "always", "never" or "ratio"
// (SampleRatio of new traces).
package tracing
