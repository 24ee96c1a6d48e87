package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/services"
)

// ImportHandler accepts spreadsheet uploads and exposes import run
// audit records. It carries no import logic of its own.
type ImportHandler struct {
	imports        services.ImportService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(imports services.ImportService, maxUploadBytes int64, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		imports:        imports,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("import-handler"),
	}
}

// RegisterRoutes registers the import handler's routes on the given mux.
func (h *ImportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/imports", h.Upload)
	mux.HandleFunc("GET /api/imports/{id}", h.GetRun)
}

// Upload runs one import over a multipart file payload.
// POST /api/imports
//
// Form fields:
//   - file: the spreadsheet payload (xlsx, csv, tsv)
//   - source_id: identifier of the source file class, used for
//     duplicate detection across re-uploads
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_payload", "Failed to parse multipart form")
		return
	}

	sourceID := r.FormValue("source_id")
	if sourceID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_source_id", "source_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_file", "file is required")
		return
	}
	defer file.Close()

	result, err := h.imports.Import(r.Context(), file, header.Filename, sourceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnsupportedFormat) || errors.Is(err, apperrors.ErrEmptySheet) {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_source", err.Error())
			return
		}
		h.logger.Error("import failed",
			zap.String("source_id", sourceID),
			zap.String("filename", header.Filename),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "import_failed", "Import failed")
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

// GetRun returns the audit record of one import run.
// GET /api/imports/{id}
func (h *ImportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid import run id")
		return
	}

	run, err := h.imports.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Import run not found")
			return
		}
		h.logger.Error("failed to load import run", zap.String("id", id.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to load import run")
		return
	}

	_ = WriteJSON(w, http.StatusOK, run)
}
