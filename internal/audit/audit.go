// Package audit defines the audit sink consumed by the export pipeline.
// The platform's real audit service sits behind this interface; the slog
// sink is what a standalone deployment runs with.
package audit

import (
	"context"
	"log/slog"
)

const (
	EventExportRequested = "export.requested"
	EventExportCompleted = "export.completed"
	EventExportFailed    = "export.failed"
)

type Event struct {
	Name       string
	TenantID   int64
	TargetType string
	TargetID   int64
	Severity   string
	Details    map[string]any
}

type Sink interface {
	Log(ctx context.Context, event Event)
}

// SlogSink writes audit events to the process log.
type SlogSink struct{}

func (SlogSink) Log(ctx context.Context, event Event) {
	slog.InfoContext(ctx, "tenant_exporter.audit."+event.Name,
		slog.Int64("tenant_id", event.TenantID),
		slog.String("target_type", event.TargetType),
		slog.Int64("target_id", event.TargetID),
		slog.String("severity", event.Severity),
		slog.Any("details", event.Details),
	)
}

// Recorder collects events in memory; test helper.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Log(_ context.Context, event Event) {
	r.Events = append(r.Events, event)
}
