package handlers

import (
	"net/http"

	"github.com/salesworks/sales-engine/pkg/config"
)

// HealthHandler reports service liveness and version.
type HealthHandler struct {
	config *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{config: cfg}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Get)
}

// Get returns service status.
// GET /health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.config.Version,
	})
}
