package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds each request: the context is cancelled at the deadline and
// a handler that overruns gets a 503 carrying the standard error envelope.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	const body = `{"success":false,"error":{"code":"TIMEOUT","message":"Request timed out"}}`

	return func(next http.Handler) http.Handler {
		guarded := http.TimeoutHandler(next, limit, body)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			guarded.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
