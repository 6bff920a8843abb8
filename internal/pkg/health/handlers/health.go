package handlers

import (
	"net/http"
	"time"
)

// HandlePing handles /ping endpoint
func HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

// HandleHealth reports readiness: the service is ready once it has at least one source
// and one club to compare.
func HandleHealth(svc Comparer, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srcs := svc.SourceNames()
		clubs := len(svc.Clubs())
		status, code := "ok", http.StatusOK
		if len(srcs) == 0 || clubs == 0 {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status":  status,
			"sources": srcs,
			"clubs":   clubs,
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}
