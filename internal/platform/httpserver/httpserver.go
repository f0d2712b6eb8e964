package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"onekyc/internal/platform/config"
)

// New builds the HTTP server. Write timeout is generous because evidence
// uploads are processed inline.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Check probes one backing dependency.
type Check func(ctx context.Context) error

// Readiness answers 200 when every check passes and 503 otherwise, naming
// the failing dependencies. Error details stay in the logs.
func Readiness(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = "unavailable"
				continue
			}
			report[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}
