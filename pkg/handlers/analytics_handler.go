package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/models"
	"github.com/salesworks/sales-engine/pkg/services"
)

// AnalyticsHandler exposes dashboard metrics, trends and rankings.
type AnalyticsHandler struct {
	analytics   services.AnalyticsService
	defaultTopN int
	logger      *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analytics services.AnalyticsService, defaultTopN int, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics:   analytics,
		defaultTopN: defaultTopN,
		logger:      logger.Named("analytics-handler"),
	}
}

// RegisterRoutes registers the analytics handler's routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/analytics/dashboard", h.Dashboard)
	mux.HandleFunc("GET /api/analytics/trend", h.Trend)
	mux.HandleFunc("GET /api/analytics/top-customers", h.TopCustomers)
	mux.HandleFunc("GET /api/analytics/top-products", h.TopProducts)
}

// Dashboard returns aggregate metrics for a period.
// GET /api/analytics/dashboard?from=2024-01-01&to=2024-12-31
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(w, r)
	if !ok {
		return
	}

	metrics, err := h.analytics.Dashboard(r.Context(), from, to)
	if err != nil {
		h.logger.Error("dashboard query failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to compute dashboard metrics")
		return
	}
	_ = WriteJSON(w, http.StatusOK, metrics)
}

// Trend returns bucketed sales over a period.
// GET /api/analytics/trend?from=...&to=...&granularity=month
func (h *AnalyticsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(w, r)
	if !ok {
		return
	}

	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = models.GranularityDay
	}

	buckets, err := h.analytics.Trend(r.Context(), from, to, granularity)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	_ = WriteJSON(w, http.StatusOK, buckets)
}

// TopCustomers returns the customer ranking for a period.
// GET /api/analytics/top-customers?from=...&to=...&limit=10
func (h *AnalyticsHandler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(w, r)
	if !ok {
		return
	}

	ranks, err := h.analytics.TopCustomers(r.Context(), from, to, h.limit(r))
	if err != nil {
		h.logger.Error("top customers query failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to rank customers")
		return
	}
	_ = WriteJSON(w, http.StatusOK, ranks)
}

// TopProducts returns the product ranking for a period.
// GET /api/analytics/top-products?from=...&to=...&limit=10
func (h *AnalyticsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(w, r)
	if !ok {
		return
	}

	ranks, err := h.analytics.TopProducts(r.Context(), from, to, h.limit(r))
	if err != nil {
		h.logger.Error("top products query failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to rank products")
		return
	}
	_ = WriteJSON(w, http.StatusOK, ranks)
}

func (h *AnalyticsHandler) period(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_period", "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_period", "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_period", "to must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *AnalyticsHandler) limit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return h.defaultTopN
}
