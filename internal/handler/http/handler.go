// Package http exposes the export pipeline over the platform's REST surface.
package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jarabaplatform/tenant-exporter/internal/app"
	"github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

type Handler struct {
	app *app.App
}

func New(a *app.App) *Handler {
	return &Handler{app: a}
}

// Router builds the gin engine with all export routes mounted.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/exports")
	{
		api.POST("", h.requestExport)
		api.GET("", h.listExports)
		api.GET("/:id", h.exportStatus)
		api.GET("/download/:token", h.download)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": model.AppServiceName})
	})

	return router
}

type exportRequestBody struct {
	TenantID    int64    `json:"tenant_id" binding:"required"`
	TenantRefID int64    `json:"tenant_ref_id" binding:"required"`
	RequesterID int64    `json:"requester_id"`
	ExportType  string   `json:"export_type"`
	Sections    []string `json:"sections"`
}

func (h *Handler) requestExport(c *gin.Context) {
	var body exportRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"id": "export.request.invalid_body", "detail": err.Error()})
		return
	}

	record, err := h.app.RequestExport(c.Request.Context(), app.ExportRequest{
		TenantID:    body.TenantID,
		TenantRefID: body.TenantRefID,
		RequesterID: body.RequesterID,
		ExportType:  model.ExportType(body.ExportType),
		Sections:    body.Sections,
	})
	if err != nil {
		if rl, ok := errors.AsRateLimited(err); ok {
			retryAfter := int(rl.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"id":          "export.request.rate_limited",
				"detail":      "daily export limit reached",
				"retry_after": retryAfter,
			})
			return
		}
		var appErr *errors.AppError
		if errors.As(err, &appErr) && appErr.ID == "export.request.invalid_type" {
			c.JSON(http.StatusBadRequest, gin.H{"id": appErr.ID, "detail": appErr.Message})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, recordResponse(record))
}

func (h *Handler) listExports(c *gin.Context) {
	tenantID, err := strconv.ParseInt(c.Query("tenant_id"), 10, 64)
	if err != nil || tenantID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"id": "export.history.invalid_tenant", "detail": "tenant_id query parameter is required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.app.ExportHistory(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.internalError(c, err)
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		items = append(items, recordResponse(rec))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) exportStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"id": "export.status.invalid_id", "detail": "id must be a positive integer"})
		return
	}

	record, err := h.app.ExportStatus(c.Request.Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"id": "export.status.not_found", "detail": "export not found"})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, recordResponse(record))
}

func (h *Handler) download(c *gin.Context) {
	dl, err := h.app.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"id": "export.download.not_found", "detail": "export not available"})
			return
		}
		h.internalError(c, err)
		return
	}
	defer dl.Body.Close()

	c.Header("Cache-Control", "private, no-store, no-cache")
	c.Header("Pragma", "no-cache")
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": `attachment; filename="` + dl.Filename + `"`,
	})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	slog.ErrorContext(c.Request.Context(), "tenant_exporter.http.request_failed",
		"path", c.FullPath(), "error", errors.Details(err))
	c.JSON(http.StatusInternalServerError, gin.H{"id": "app.internal", "detail": "internal error"})
}

func recordResponse(rec *model.ExportRecord) gin.H {
	resp := gin.H{
		"id":             rec.ID,
		"tenant_id":      rec.TenantID,
		"export_type":    rec.ExportType,
		"status":         rec.Status,
		"status_label":   rec.StatusLabel(),
		"progress":       rec.Progress,
		"current_phase":  rec.CurrentPhase,
		"sections":       rec.RequestedSections,
		"download_count": rec.DownloadCount,
		"downloadable":   rec.Downloadable(time.Now()),
		"created":        rec.Created.Format(time.RFC3339),
		"expires_at":     rec.ExpiresAt.Format(time.RFC3339),
	}
	if rec.CompletedAt != nil {
		resp["completed_at"] = rec.CompletedAt.Format(time.RFC3339)
	}
	if rec.Status == model.ExportStatusCompleted {
		resp["download_token"] = rec.DownloadToken
		resp["file_size"] = rec.FileSize
		resp["file_hash"] = rec.FileHash
		resp["section_counts"] = rec.SectionCounts
	}
	if rec.Status == model.ExportStatusFailed {
		resp["error_message"] = rec.ErrorMessage
	}
	return resp
}
