package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/kyosan/pkg/api"
)

// Recovery recovers from panics in HTTP handlers and answers with a 500 in
// the API error format. The panic value and stack are logged; neither is
// sent to the client.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			api.WriteError(w, api.NewServerError("An internal error occurred. Please try again later."))
		}()

		next.ServeHTTP(w, r)
	})
}
