package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jarabaplatform/tenant-exporter/internal/audit"
	"github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

// ExportRequest is the intake contract for starting an export.
type ExportRequest struct {
	TenantID    int64
	TenantRefID int64
	RequesterID int64
	ExportType  model.ExportType
	Sections    []string
}

// RequestExport checks the tenant's quota, creates the record and enqueues
// exactly one job. It never waits for processing. A denied quota surfaces
// as *errors.RateLimitedError with retry guidance; no record is created.
func (a *App) RequestExport(ctx context.Context, req ExportRequest) (*model.ExportRecord, error) {
	exportType := req.ExportType
	if exportType == "" {
		exportType = model.ExportTypeFull
	}
	if !model.ValidExportType(exportType) {
		return nil, errors.New(
			fmt.Sprintf("unknown export type: %s", exportType),
			errors.WithID("export.request.invalid_type"),
		)
	}

	// The limiter counts the attempt atomically; an unreachable limiter
	// fails the request rather than bypassing the quota.
	decision, err := a.Limiter.Check(ctx, fmt.Sprintf("tenant:%d", req.TenantID))
	if err != nil {
		return nil, errors.Internal("rate limiter check failed", errors.WithCause(err))
	}
	if !decision.Allowed {
		return nil, &errors.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	sections := dedupeSections(req.Sections)
	if len(sections) == 0 {
		sections = dedupeSections(a.Config.Export.DefaultSections)
	}

	ttl := time.Duration(a.Config.Export.ExpirationHours) * time.Hour
	record, err := a.Store.ExportRecords().Create(ctx, &model.NewExportRecord{
		TenantID:          req.TenantID,
		TenantRefID:       req.TenantRefID,
		RequestedBy:       req.RequesterID,
		ExportType:        exportType,
		RequestedSections: sections,
		DownloadToken:     uuid.NewString(),
		ExpiresAt:         time.Now().Add(ttl),
	})
	if err != nil {
		return nil, err
	}

	job := model.ExportJob{
		RecordID:    record.ID,
		TenantID:    req.TenantID,
		TenantRefID: req.TenantRefID,
		Sections:    sections,
		Attempt:     0,
	}
	if err := a.Queue.Enqueue(ctx, job); err != nil {
		// The record would sit in queued forever; surface that instead of
		// pretending the export is on its way.
		_ = a.Store.ExportRecords().MarkFailed(ctx, record.ID, "failed to enqueue export job")
		return nil, errors.Internal("failed to enqueue export job", errors.WithCause(err))
	}

	a.Audit.Log(ctx, audit.Event{
		Name:       audit.EventExportRequested,
		TenantID:   req.TenantID,
		TargetType: "tenant_export_record",
		TargetID:   record.ID,
		Severity:   "info",
		Details: map[string]any{
			"type":         string(exportType),
			"sections":     sections,
			"requested_by": req.RequesterID,
		},
	})

	slog.InfoContext(ctx, "tenant_exporter.coordinator.export_requested",
		slog.Int64("tenant_id", req.TenantID),
		slog.Int64("record_id", record.ID),
	)

	return record, nil
}

// ExportHistory lists a tenant's export records, most recent first.
func (a *App) ExportHistory(ctx context.Context, tenantID int64, limit int) ([]*model.ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return a.Store.ExportRecords().ListByTenant(ctx, tenantID, limit)
}

// ExportStatus returns one record for progress polling.
func (a *App) ExportStatus(ctx context.Context, id int64) (*model.ExportRecord, error) {
	return a.Store.ExportRecords().Get(ctx, id)
}

func dedupeSections(sections []string) []string {
	seen := make(map[string]struct{}, len(sections))
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
