package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// RequestRecorder receives one observation per completed request.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, code int, d time.Duration)
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logging logs every request when it completes and, when recorder is not
// nil, reports it for metrics. Routes must sit inside Logging for requests
// to be labelled by pattern.
//
// Completion is logged at INFO, or WARN for 4xx and ERROR for 5xx:
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "request_id": "7c4f...",
//	  "method": "POST",
//	  "path": "/api/v1/ethics/process",
//	  "route": "POST /api/v1/ethics/process",
//	  "status": 200,
//	  "latency_ms": 12
//	}
func Logging(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ctx := context.WithValue(r.Context(), StartTimeKey, startTime)
			ctx, rt := withRoute(ctx)

			rw := newResponseWriter(w)

			slog.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			// A panic is logged as a 500 and then re-raised for Recovery.
			defer func() {
				p := recover()
				if p != nil {
					rw.statusCode = http.StatusInternalServerError
				}

				latency := time.Since(startTime)
				pattern := rt.pattern
				if pattern == "" {
					pattern = unmatchedRoute
				}

				logLevel := slog.LevelInfo
				if rw.statusCode >= 500 {
					logLevel = slog.LevelError
				} else if rw.statusCode >= 400 {
					logLevel = slog.LevelWarn
				}
				slog.Log(ctx, logLevel, "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"route", pattern,
					"status", rw.statusCode,
					"latency_ms", latency.Milliseconds(),
					"remote_addr", r.RemoteAddr,
				)

				if recorder != nil {
					recorder.RecordHTTPRequest(r.Method, pattern, rw.statusCode, latency)
				}
				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}
