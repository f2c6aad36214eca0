// Package middleware provides the HTTP middleware chain of the Kyosan API.
//
// The server composes it outermost first:
//
//	Recovery -> RequestID -> Logging -> CORS -> Timeout -> MaxBody -> Routes(mux)
//
// Recovery must stay outermost: Timeout re-raises handler panics on the
// serving goroutine so that Recovery can answer them with a 500.
package middleware
