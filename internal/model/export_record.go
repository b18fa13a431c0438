package model

import "time"

type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusCollecting ExportStatus = "collecting"
	ExportStatusPackaging  ExportStatus = "packaging"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
	ExportStatusExpired    ExportStatus = "expired"
)

type ExportType string

const (
	ExportTypeFull        ExportType = "full"
	ExportTypePartial     ExportType = "partial"
	ExportTypePortability ExportType = "portability"
)

// ValidExportType reports whether t is one of the accepted export types.
func ValidExportType(t ExportType) bool {
	switch t {
	case ExportTypeFull, ExportTypePartial, ExportTypePortability:
		return true
	}
	return false
}

// ExportRecord tracks one export request from creation to expiration.
// Status only moves forward; expired is reachable from completed only and
// records are never physically deleted.
type ExportRecord struct {
	ID                int64            `db:"id"`
	TenantID          int64            `db:"tenant_id"`
	TenantRefID       int64            `db:"tenant_ref_id"`
	RequestedBy       int64            `db:"requested_by"`
	ExportType        ExportType       `db:"export_type"`
	Status            ExportStatus     `db:"status"`
	Progress          int              `db:"progress"`
	CurrentPhase      string           `db:"current_phase"`
	RequestedSections []string         `db:"requested_sections"`
	DownloadToken     string           `db:"download_token"`
	FilePath          string           `db:"file_path"`
	FileSize          int64            `db:"file_size"`
	FileHash          string           `db:"file_hash"`
	SectionCounts     map[string]int   `db:"section_counts"`
	DownloadCount     int              `db:"download_count"`
	Created           time.Time        `db:"created"`
	CompletedAt       *time.Time       `db:"completed_at"`
	ExpiresAt         time.Time        `db:"expires_at"`
	ErrorMessage      string           `db:"error_message"`
}

// NewExportRecord carries the fields set by the coordinator at creation.
type NewExportRecord struct {
	TenantID          int64
	TenantRefID       int64
	RequestedBy       int64
	ExportType        ExportType
	RequestedSections []string
	DownloadToken     string
	ExpiresAt         time.Time
}

// CompletedExport carries the fields written when packaging succeeds.
type CompletedExport struct {
	FilePath      string
	FileSize      int64
	FileHash      string
	SectionCounts map[string]int
}

// Claimable reports whether a worker may pick the record up. Any other
// status means the job was already handled or is terminal.
func (r *ExportRecord) Claimable() bool {
	return r.Status == ExportStatusQueued || r.Status == ExportStatusCollecting
}

// Downloadable reports whether the archive can currently be served.
func (r *ExportRecord) Downloadable(now time.Time) bool {
	return r.Status == ExportStatusCompleted && now.Before(r.ExpiresAt)
}

// StatusLabel is the human-readable status for UI listings.
func (r *ExportRecord) StatusLabel() string {
	switch r.Status {
	case ExportStatusQueued:
		return "Queued"
	case ExportStatusCollecting:
		return "Collecting data"
	case ExportStatusPackaging:
		return "Packaging"
	case ExportStatusCompleted:
		return "Ready for download"
	case ExportStatusFailed:
		return "Failed"
	case ExportStatusExpired:
		return "Expired"
	}
	return string(r.Status)
}
