package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/models"
)

// mockImportService implements services.ImportService.
type mockImportService struct {
	result    *models.Result
	importErr error
	run       *models.ImportRun

	gotFilename string
	gotSourceID string
	gotPayload  []byte
}

func (m *mockImportService) Import(_ context.Context, payload io.Reader, filename, sourceID string) (*models.Result, error) {
	m.gotFilename = filename
	m.gotSourceID = sourceID
	m.gotPayload, _ = io.ReadAll(payload)
	if m.importErr != nil {
		return nil, m.importErr
	}
	return m.result, nil
}

func (m *mockImportService) GetRun(_ context.Context, id uuid.UUID) (*models.ImportRun, error) {
	if m.run != nil && m.run.ID == id {
		return m.run, nil
	}
	return nil, apperrors.ErrNotFound
}

func newImportMux(svc *mockImportService) *http.ServeMux {
	mux := http.NewServeMux()
	NewImportHandler(svc, 1<<20, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func multipartUpload(t *testing.T, sourceID, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if sourceID != "" {
		require.NoError(t, mw.WriteField("source_id", sourceID))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload_PassesPayloadThrough(t *testing.T) {
	svc := &mockImportService{result: &models.Result{
		RunID:    uuid.New(),
		SourceID: "upload-1",
		State:    models.ImportStateCompleted,
		Sales:    models.ImportCounts{Created: 2},
	}}
	mux := newImportMux(svc)

	body, contentType := multipartUpload(t, "upload-1", "sales.csv", "customer,quantity\nAcme,2\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sales.csv", svc.gotFilename)
	assert.Equal(t, "upload-1", svc.gotSourceID)
	assert.Equal(t, "customer,quantity\nAcme,2\n", string(svc.gotPayload))

	var result models.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, models.ImportStateCompleted, result.State)
	assert.Equal(t, 2, result.Sales.Created)
}

func TestUpload_RequiresSourceID(t *testing.T) {
	mux := newImportMux(&mockImportService{})

	body, contentType := multipartUpload(t, "", "sales.csv", "data")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_RequiresFile(t *testing.T) {
	mux := newImportMux(&mockImportService{})

	body, contentType := multipartUpload(t, "upload-1", "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_FormatErrorsAreBadRequest(t *testing.T) {
	svc := &mockImportService{importErr: apperrors.ErrUnsupportedFormat}
	mux := newImportMux(svc)

	body, contentType := multipartUpload(t, "upload-1", "sales.json", "{}")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "invalid_source", resp["error"])
}

func TestGetRun_ReturnsAuditRecord(t *testing.T) {
	run := &models.ImportRun{
		ID:       uuid.New(),
		SourceID: "upload-1",
		State:    models.ImportStateCompleted,
	}
	mux := newImportMux(&mockImportService{run: run})

	req := httptest.NewRequest(http.MethodGet, "/api/imports/"+run.ID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.ImportRun
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, run.ID, got.ID)
}

func TestGetRun_UnknownIDIs404(t *testing.T) {
	mux := newImportMux(&mockImportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/imports/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRun_InvalidIDIs400(t *testing.T) {
	mux := newImportMux(&mockImportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/imports/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
