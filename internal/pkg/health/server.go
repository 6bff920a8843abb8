// Package health is the HTTP surface: liveness probes, Prometheus metrics and the
// comparison endpoints.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/health/handlers"
)

// NewMux wires every endpoint. compareTimeout bounds one /compare request.
func NewMux(svc handlers.Comparer, compareTimeout time.Duration) *http.ServeMux {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/ping", handlers.HandlePing)
	mux.HandleFunc("/health", handlers.HandleHealth(svc, time.Now()))

	mux.Handle("/metrics", handlers.HandleMetrics())

	mux.HandleFunc("/clubs", handlers.HandleClubs(svc))
	mux.HandleFunc("/sources", handlers.HandleSources(svc))
	mux.HandleFunc("/compare", handlers.HandleCompare(svc, compareTimeout))
	return mux
}

// HandleScheduler exposes the scheduled comparison at /run.
func HandleScheduler(mux *http.ServeMux, s handlers.Scheduler) {
	mux.HandleFunc("/run", handlers.HandleRun(s))
}

// Run serves handler until ctx is cancelled, then shuts down gracefully. The returned
// channel yields the serve error (nil after a clean shutdown) and is closed afterwards.
func Run(ctx context.Context, addr, service string, handler http.Handler, cfg config.ServerConfig) <-chan error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		defer close(done)
		slog.Info("HTTP server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "service", service, "error", err)
			done <- err
			return
		}
		done <- nil
	}()
	return done
}

func AddrFor(port int) (string, error) {
	if port <= 0 {
		return "", fmt.Errorf("port must be greater than 0, got %d", port)
	}
	return fmt.Sprintf(":%d", port), nil
}
