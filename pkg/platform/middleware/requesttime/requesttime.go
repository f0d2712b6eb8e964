// Package requesttime provides middleware for request-scoped time.
// All operations within a single HTTP request use the same "now", so the
// verified-at, expires-at and event timestamps of one decision agree.
package requesttime

import (
	"net/http"
	"time"

	"onekyc/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
