package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HandleMetrics serves the Prometheus registry in text exposition format.
func HandleMetrics() http.Handler {
	return promhttp.Handler()
}
