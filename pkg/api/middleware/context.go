package middleware

import (
	"context"
	"net/http"
	"time"
)

type contextKey string

const (
	// StartTimeKey stores the request start time.
	StartTimeKey contextKey = "start_time"

	routeKey contextKey = "route"
)

// unmatchedRoute labels requests that no route pattern matched.
const unmatchedRoute = "unmatched"

// route is filled in by Routes once the mux has picked a pattern, and read
// back by Logging after the request completes.
type route struct {
	pattern string
}

func withRoute(ctx context.Context) (context.Context, *route) {
	rt := &route{}
	return context.WithValue(ctx, routeKey, rt), rt
}

// Routes records which pattern of mux serves each request, so that request
// metrics are labelled by route rather than by raw path.
func Routes(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt, ok := r.Context().Value(routeKey).(*route); ok {
			if _, pattern := mux.Handler(r); pattern != "" {
				rt.pattern = pattern
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// GetStartTime returns the time Logging saw the request, or the zero time.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}
