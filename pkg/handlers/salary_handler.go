package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/models"
	"github.com/salesworks/sales-engine/pkg/services"
)

// SalaryHandler exposes agent salary calculation.
type SalaryHandler struct {
	salaries services.SalaryService
	logger   *zap.Logger
}

// NewSalaryHandler creates a new salary handler.
func NewSalaryHandler(salaries services.SalaryService, logger *zap.Logger) *SalaryHandler {
	return &SalaryHandler{
		salaries: salaries,
		logger:   logger.Named("salary-handler"),
	}
}

// RegisterRoutes registers the salary handler's routes on the given mux.
func (h *SalaryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/agents/{id}/salary", h.Calculate)
	mux.HandleFunc("GET /api/agents/{id}/salary", h.Get)
}

// Calculate computes (or recomputes) one agent's monthly salary.
// POST /api/agents/{id}/salary
//
// Body: {"year": 2024, "month": 3, "bonus": "500", "penalty": "0"}
// bonus and penalty are optional manual overrides.
func (h *SalaryHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid agent id")
		return
	}

	var body struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		models.SalaryOverrides
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON body")
		return
	}

	calc, err := h.salaries.Calculate(r.Context(), agentID, body.Year, body.Month, body.SalaryOverrides)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Agent not found")
			return
		}
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	_ = WriteJSON(w, http.StatusOK, calc)
}

// Get returns a previously calculated salary figure.
// GET /api/agents/{id}/salary?year=2024&month=3
func (h *SalaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid agent id")
		return
	}

	year, err1 := strconv.Atoi(r.URL.Query().Get("year"))
	month, err2 := strconv.Atoi(r.URL.Query().Get("month"))
	if err1 != nil || err2 != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_period", "year and month are required integers")
		return
	}

	calc, err := h.salaries.Get(r.Context(), agentID, year, month)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Salary not calculated for this period")
			return
		}
		h.logger.Error("failed to load salary calculation",
			zap.String("agent_id", agentID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to load salary calculation")
		return
	}
	_ = WriteJSON(w, http.StatusOK, calc)
}
