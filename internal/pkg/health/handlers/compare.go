package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Vodeneev/tripprices/internal/comparator"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

// Comparer is the part of comparator.Service the HTTP surface needs.
type Comparer interface {
	Compare(ctx context.Context, req comparator.Request) (*comparator.Comparison, error)
	Clubs() []models.CanonicalEntity
	SourceNames() []string
}

// HandleCompare runs a comparison for the requested clubs.
// GET /compare?club=Tottenham&club=Arsenal&source=fantravel&strict_nights=true
// Comma separated values work too: ?club=Tottenham,Arsenal
func HandleCompare(svc Comparer, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		req := comparator.Request{
			Clubs:   splitValues(q["club"]),
			Sources: splitValues(q["source"]),
		}
		if len(req.Clubs) == 0 {
			writeError(w, http.StatusBadRequest, `missing query parameter "club"`)
			return
		}
		if v := q.Get("strict_nights"); v != "" {
			strict, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid strict_nights %q", v))
				return
			}
			req.StrictNights = &strict
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		startTime := time.Now()
		c, err := svc.Compare(ctx, req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, comparator.ErrNothingSelected) || errors.Is(err, comparator.ErrUnknownSource) {
				status = http.StatusBadRequest
			}
			slog.Warn("Compare request failed", "clubs", req.Clubs, "error", err, "status", status)
			writeError(w, status, err.Error())
			return
		}

		w.Header().Set("X-Run-ID", c.RunID)
		w.Header().Set("X-Query-Duration", time.Since(startTime).String())
		writeJSON(w, http.StatusOK, c)
	}
}

// HandleClubs lists the clubs a comparison can select.
func HandleClubs(svc Comparer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"clubs": svc.Clubs(),
			"count": len(svc.Clubs()),
		})
	}
}

// HandleSources lists the enabled sources.
func HandleSources(svc Comparer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sources": svc.SourceNames(),
		})
	}
}

func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
