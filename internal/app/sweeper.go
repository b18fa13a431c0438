package app

import (
	"context"
	"log/slog"
	"time"
)

// StartRetentionSweeper periodically purges expired archives in the
// background until the context is cancelled.
func (a *App) StartRetentionSweeper(ctx context.Context) {
	interval := time.Duration(a.Config.Export.SweepMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := a.SweepExpired(ctx); err != nil {
					slog.ErrorContext(ctx, "tenant_exporter.sweeper.sweep_failed", "error", err)
				} else if n > 0 {
					slog.InfoContext(ctx, "tenant_exporter.sweeper.sweep_complete", "expired", n)
				}
			}
		}
	}()
}

// SweepExpired removes archives for completed records past their expiration
// and marks those records expired. A failed file deletion is logged and does
// not stop the record transition. If the transition itself fails the record
// stays completed and the next sweep picks it up again.
func (a *App) SweepExpired(ctx context.Context) (int, error) {
	records := a.Store.ExportRecords()

	expired, err := records.ListExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, rec := range expired {
		if rec.FilePath != "" {
			if err := a.Files.Delete(ctx, rec.FilePath); err != nil {
				slog.WarnContext(ctx, "tenant_exporter.sweeper.delete_failed",
					"recordID", rec.ID, "path", rec.FilePath, "error", err)
			}
		}
		if err := records.MarkExpired(ctx, rec.ID); err != nil {
			slog.WarnContext(ctx, "tenant_exporter.sweeper.mark_expired_failed",
				"recordID", rec.ID, "error", err)
			continue
		}
		swept++
	}

	return swept, nil
}
