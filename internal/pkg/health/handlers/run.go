package handlers

import (
	"net/http"
)

// Scheduler is the part of scheduler.Runner the HTTP surface needs.
type Scheduler interface {
	Trigger() bool
	Status() (cycles int, running bool, lastErr error)
}

// HandleRun queues a scheduled comparison (POST) or reports the scheduler state (GET).
func HandleRun(s Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			queued := s.Trigger()
			writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
		case http.MethodGet:
			cycles, running, lastErr := s.Status()
			resp := map[string]interface{}{"cycles": cycles, "running": running}
			if lastErr != nil {
				resp["last_error"] = lastErr.Error()
			}
			writeJSON(w, http.StatusOK, resp)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
