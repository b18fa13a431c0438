package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/jarabaplatform/tenant-exporter/internal/errors"
)

// Download is a resolved archive ready to stream to the requester.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	Size        int64
	ContentType string
}

// ResolveDownload exchanges a download token for the archive stream. Any
// token that does not map to a currently downloadable record resolves to a
// not-found error; callers cannot distinguish unknown, expired and consumed
// tokens.
func (a *App) ResolveDownload(ctx context.Context, token string) (*Download, error) {
	records := a.Store.ExportRecords()

	rec, err := records.GetByToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound("export.download.not_found", "export not available")
		}
		return nil, err
	}

	if !rec.Downloadable(time.Now()) {
		return nil, errors.NotFound("export.download.not_found", "export not available")
	}

	body, err := a.Files.Open(ctx, rec.FilePath)
	if err != nil {
		if errors.IsNotFound(err) {
			slog.WarnContext(ctx, "tenant_exporter.download.archive_missing",
				"recordID", rec.ID, "path", rec.FilePath)
			return nil, errors.NotFound("export.download.not_found", "export not available")
		}
		return nil, err
	}

	if err := records.IncrementDownloadCount(ctx, rec.ID); err != nil {
		slog.WarnContext(ctx, "tenant_exporter.download.count_write_failed",
			"recordID", rec.ID, "error", err)
	}

	return &Download{
		Body:        body,
		Filename:    downloadFilename(rec.FilePath, rec.TenantID),
		Size:        rec.FileSize,
		ContentType: "application/zip",
	}, nil
}

func downloadFilename(filePath string, tenantID int64) string {
	if name := path.Base(filePath); name != "." && name != "/" && name != "" {
		return name
	}
	return fmt.Sprintf("tenant_export_%d.zip", tenantID)
}
