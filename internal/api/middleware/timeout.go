package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware puts a deadline on each request context. A zero or
// negative timeout disables it. Handlers are not interrupted; they and the
// clients they call must watch ctx.Done().
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
