// Package health reports gateway liveness for load balancers and the bank
// network's monitoring probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Checker is the dependency probe the handler runs per request.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Response is the health payload. status is "ok" or "degraded"; a degraded
// gateway still answers 200 so balancers keep routing auth-only traffic.
type Response struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	EndpointsCount int    `json:"endpoints_count"`
}

// Handler serves GET /health.
type Handler struct {
	db        Checker
	endpoints int
	logger    *zap.Logger
}

// NewHandler creates the health handler. endpoints is the number of mounted
// network routes, reported for dashboard sanity checks.
func NewHandler(db Checker, endpoints int, logger *zap.Logger) *Handler {
	return &Handler{db: db, endpoints: endpoints, logger: logger}
}

// Handle answers the probe. Database failures degrade the status but keep the
// 200: the signature-verification surface works without the store.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:         "ok",
		Database:       "up",
		EndpointsCount: h.endpoints,
	}

	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("health probe found database down", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
