// Package server runs the Kyosan HTTP API.
//
// It wires the handlers in api/handlers behind the middleware chain in
// api/middleware, adds the operational endpoints, and manages graceful
// shutdown:
//
//	srv, err := server.NewServer(cfg, server.Dependencies{
//	    Orchestrator:  orch,
//	    Conversations: store,
//	    Recorder:      rec,
//	    Metrics:       collector,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // blocks until ctx is cancelled
//
// Besides the API routes the server exposes /healthz (liveness), /readyz
// (readiness, from the registered health checks), /version and, when
// metrics are enabled, the Prometheus endpoint at the configured path.
package server
