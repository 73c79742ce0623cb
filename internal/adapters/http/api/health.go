package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/huikao/pkg/metrics"
)

// StatsProvider reports service internals for the liveness endpoint.
type StatsProvider interface {
	GetStats() map[string]any
}

// HealthHandler serves liveness and metrics.
type HealthHandler struct {
	stats StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{stats: stats}
}

type healthResponse struct {
	Status  string         `json:"status"`
	Service map[string]any `json:"service,omitempty"`
}

// HandleHealth handles GET /healthz.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.stats != nil {
		resp.Service = h.stats.GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMetrics handles GET /metrics from the service registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
