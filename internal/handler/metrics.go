package handler

import (
	"net/http"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/middleware"
)

// MetricsHandler exposes the Prometheus registry.
type MetricsHandler struct {
	exporter http.Handler
}

// NewMetricsHandler creates a new MetricsHandler. A nil exporter means
// metrics are disabled.
func NewMetricsHandler(exporter http.Handler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		middleware.WriteError(w, apperr.New(http.StatusServiceUnavailable, apperr.CodeInternal, "Metrics are disabled"))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
