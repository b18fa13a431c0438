package app

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jarabaplatform/tenant-exporter/internal/audit"
	"github.com/jarabaplatform/tenant-exporter/internal/collector"
	"github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/queue"
)

// collectProgressCap keeps packaging visible in the progress bar: the
// collection phase never reports beyond 90.
const collectProgressCap = 90

// StartExportWorkers launches background workers to process export jobs concurrently.
// If too many workers are configured, the number is limited based on available CPU cores.
func (a *App) StartExportWorkers(ctx context.Context) {
	numWorkers := a.Config.Export.Workers
	if numWorkers <= 0 {
		numWorkers = 4
	}

	maxWorkers := runtime.NumCPU() * 2
	if numWorkers > maxWorkers {
		numWorkers = maxWorkers
	}

	slog.InfoContext(ctx, "tenant_exporter.worker.starting", "count", numWorkers)

	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					return
				default:
					job, err := a.Queue.Dequeue(ctx)
					if err != nil {
						if !errors.Is(err, queue.ErrEmpty) && ctx.Err() == nil {
							slog.ErrorContext(ctx, "tenant_exporter.worker.dequeue_failed",
								"workerID", workerID, "error", err)
							time.Sleep(time.Second)
						}
						continue
					}

					if err := a.processExport(ctx, job); err != nil {
						slog.ErrorContext(ctx, "tenant_exporter.worker.export_failed",
							"workerID", workerID,
							"recordID", job.RecordID,
							"attempt", job.Attempt,
							"error", err)
					}
				}
			}
		}(i + 1)
	}
}

// processExport drives one record through collecting, packaging and the
// terminal status. Per-section collection errors are absorbed upstream as
// sentinel entries; only setup and packaging errors fail the job.
func (a *App) processExport(ctx context.Context, job model.ExportJob) (err error) {
	ctx, span := otel.Tracer(model.AppServiceName).Start(ctx, "export.process")
	span.SetAttributes(
		attribute.Int64("export.record_id", job.RecordID),
		attribute.Int64("tenant.id", job.TenantID),
		attribute.Int("export.attempt", job.Attempt),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	records := a.Store.ExportRecords()

	rec, err := records.Claim(ctx, job.RecordID)
	if err != nil {
		if errors.IsNotFound(err) {
			// Duplicate or late delivery; the record was already handled.
			slog.InfoContext(ctx, "tenant_exporter.worker.skipping_job",
				"recordID", job.RecordID)
			return nil
		}
		return err
	}

	sections := job.Sections
	if len(sections) == 0 {
		sections = rec.RequestedSections
	}

	dc := collector.New(a.Registry)
	result := dc.CollectAll(ctx, rec.TenantRefID, sections, func(percent int, section string) {
		if percent > collectProgressCap {
			percent = collectProgressCap
		}
		if err := records.SetProgress(ctx, rec.ID, percent, section); err != nil {
			slog.WarnContext(ctx, "tenant_exporter.worker.progress_write_failed",
				"recordID", rec.ID, "error", err)
		}
	})

	sectionCounts := result.SectionCounts()

	if err := records.SetPackaging(ctx, rec.ID); err != nil {
		return a.failExport(ctx, rec, err)
	}

	artifact, err := a.Archive.Build(ctx, rec, result)
	if err != nil {
		return a.failExport(ctx, rec, err)
	}

	if err := records.MarkCompleted(ctx, rec.ID, &model.CompletedExport{
		FilePath:      artifact.Path,
		FileSize:      artifact.Size,
		FileHash:      artifact.Hash,
		SectionCounts: sectionCounts,
	}); err != nil {
		return a.failExport(ctx, rec, err)
	}

	a.Audit.Log(ctx, audit.Event{
		Name:       audit.EventExportCompleted,
		TenantID:   rec.TenantID,
		TargetType: "tenant_export_record",
		TargetID:   rec.ID,
		Severity:   "info",
		Details: map[string]any{
			"file_size": artifact.Size,
			"sections":  sectionCounts,
		},
	})

	slog.InfoContext(ctx, "tenant_exporter.worker.export_completed",
		slog.Int64("record_id", rec.ID),
		slog.Int64("file_size", artifact.Size),
	)

	return nil
}

func (a *App) failExport(ctx context.Context, rec *model.ExportRecord, cause error) error {
	if err := a.Store.ExportRecords().MarkFailed(ctx, rec.ID, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "tenant_exporter.worker.mark_failed_error",
			"recordID", rec.ID, "error", err)
	}
	a.Audit.Log(ctx, audit.Event{
		Name:       audit.EventExportFailed,
		TenantID:   rec.TenantID,
		TargetType: "tenant_export_record",
		TargetID:   rec.ID,
		Severity:   "warning",
		Details:    map[string]any{"error": cause.Error()},
	})
	return cause
}
