package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/diary-be/internal/api/respond"
	"github.com/isdelr/diary-be/internal/apperr"
	"github.com/isdelr/diary-be/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// HostStatsSource provides the latest host stats sample.
type HostStatsSource interface {
	Latest() monitoring.HostStats
}

// HealthHandler serves the health endpoint.
type HealthHandler struct {
	store Pinger
	stats HostStatsSource
}

// NewHealthHandler creates a new HealthHandler. stats may be nil.
func NewHealthHandler(store Pinger, stats HostStatsSource) *HealthHandler {
	return &HealthHandler{store: store, stats: stats}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string                `json:"status"`
	Storage string                `json:"storage"`
	Host    *monitoring.HostStats `json:"host,omitempty"`
}

// Healthz reports 200 when storage answers a ping and 503 otherwise.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Storage: h.store.Name()}
	if h.stats != nil {
		if s := h.stats.Latest(); !s.SampledAt.IsZero() {
			resp.Host = &s
		}
	}

	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		apperr.Log(log.Error(), err).Msg("Health check failed")
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	respond.JSON(w, status, resp)
}
