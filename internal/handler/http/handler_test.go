package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/jarabaplatform/tenant-exporter/config"
	"github.com/jarabaplatform/tenant-exporter/internal/app"
	"github.com/jarabaplatform/tenant-exporter/internal/archive"
	"github.com/jarabaplatform/tenant-exporter/internal/audit"
	"github.com/jarabaplatform/tenant-exporter/internal/filestore"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/queue"
	"github.com/jarabaplatform/tenant-exporter/internal/ratelimit"
	"github.com/jarabaplatform/tenant-exporter/internal/store/inmemory"
)

func newTestServer(t *testing.T) (*gin.Engine, *app.App, *inmemory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := inmemory.New()
	st.Seed().Profile = &model.TenantProfile{ID: 7, Name: "Acme", Domain: "acme.example.org"}

	files, err := filestore.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	a := &app.App{
		Config: &cfg.AppConfig{
			Service: &cfg.ServiceConfig{Id: "tenant-exporter-test", BindAddr: ":0"},
			Export: &cfg.ExportConfig{
				Workers:         1,
				ExpirationHours: 48,
				RateLimitPerDay: 2,
				DefaultSections: []string{"core"},
			},
		},
		Store:    st,
		Queue:    queue.NewMemoryQueue(16),
		Limiter:  ratelimit.NewMemoryLimiter(2, 24*time.Hour),
		Files:    files,
		Registry: app.BuildSectionRegistry(st, false),
		Archive:  archive.NewBuilder(files),
		Audit:    &audit.Recorder{},
	}

	return New(a).Router(), a, st
}

func doJSON(t *testing.T, router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestExportEndpoint(t *testing.T) {
	router, _, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/exports", gin.H{
		"tenant_id":     7,
		"tenant_ref_id": 7,
		"requester_id":  3,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp["status"])
	assert.Equal(t, "full", resp["export_type"])
	assert.NotContains(t, resp, "download_token")
}

func TestRequestExportEndpointValidation(t *testing.T) {
	router, _, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/exports", gin.H{"tenant_id": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/exports", gin.H{
		"tenant_id":     7,
		"tenant_ref_id": 7,
		"export_type":   "bulk",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestExportEndpointRateLimited(t *testing.T) {
	router, _, _ := newTestServer(t)

	body := gin.H{"tenant_id": 7, "tenant_ref_id": 7}
	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/exports", body)
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	w := doJSON(t, router, http.MethodPost, "/api/exports", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "export.request.rate_limited", resp["id"])
}

func TestExportHistoryAndStatusEndpoints(t *testing.T) {
	router, a, _ := newTestServer(t)

	rec, err := a.RequestExport(context.Background(), app.ExportRequest{TenantID: 7, TenantRefID: 7})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/api/exports?tenant_id=7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Queued", list.Items[0]["status_label"])

	w = doJSON(t, router, http.MethodGet, "/api/exports/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, float64(rec.ID), status["id"])

	w = doJSON(t, router, http.MethodGet, "/api/exports/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/exports?tenant_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadEndpoint(t *testing.T) {
	router, a, st := newTestServer(t)
	ctx := context.Background()

	token := uuid.NewString()
	records := st.ExportRecords()
	rec, err := records.Create(ctx, &model.NewExportRecord{
		TenantID:          7,
		TenantRefID:       7,
		ExportType:        model.ExportTypeFull,
		RequestedSections: []string{"core"},
		DownloadToken:     token,
		ExpiresAt:         time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = records.Claim(ctx, rec.ID)
	require.NoError(t, err)
	require.NoError(t, records.SetPackaging(ctx, rec.ID))
	require.NoError(t, a.Files.Put(ctx, "tenant_7/export.zip", strings.NewReader("zip-bytes")))
	require.NoError(t, records.MarkCompleted(ctx, rec.ID, &model.CompletedExport{
		FilePath: "tenant_7/export.zip",
		FileSize: int64(len("zip-bytes")),
		FileHash: "abc",
	}))

	w := doJSON(t, router, http.MethodGet, "/api/exports/download/"+token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "zip-bytes", w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestDownloadEndpointUnknownToken(t *testing.T) {
	router, _, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/exports/download/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
