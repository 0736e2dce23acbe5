package httpx

import (
	"context"
	"io"
	"net/http"
	"sort"
	"time"
)

const healthResponse = `{"status":"ok"}`

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// readinessHandler runs every check and answers 503 naming the failures.
func readinessHandler(checks map[string]HealthCheck) http.HandlerFunc {
	if len(checks) == 0 {
		return healthHandler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		var failed []string
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed = append(failed, name)
			}
		}
		if len(failed) == 0 {
			healthHandler(w, r)
			return
		}
		sort.Strings(failed)
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
	}
}
