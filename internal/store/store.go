package store

import (
	"context"
	"time"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

type Store interface {
	ExportRecords() ExportRecordStore
	Sections() SectionStore

	// ------------ Database Management ------------ //
	Open() error  // Return custom DB error
	Close() error // Return custom DB error
}

// ExportRecordStore persists the export state machine. Implementations must
// keep progress non-decreasing and never delete rows.
type ExportRecordStore interface {
	Create(ctx context.Context, input *model.NewExportRecord) (*model.ExportRecord, error)
	Get(ctx context.Context, id int64) (*model.ExportRecord, error)
	GetByToken(ctx context.Context, token string) (*model.ExportRecord, error)

	// Claim conditionally moves a queued or collecting record to collecting
	// and returns it. Any other status yields DBNotFoundError so duplicate
	// deliveries become no-ops.
	Claim(ctx context.Context, id int64) (*model.ExportRecord, error)

	SetProgress(ctx context.Context, id int64, progress int, phase string) error
	SetPackaging(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64, result *model.CompletedExport) error
	MarkFailed(ctx context.Context, id int64, message string) error

	IncrementDownloadCount(ctx context.Context, id int64) error
	ListByTenant(ctx context.Context, tenantID int64, limit int) ([]*model.ExportRecord, error)

	ListExpired(ctx context.Context, now time.Time) ([]*model.ExportRecord, error)
	MarkExpired(ctx context.Context, id int64) error
}

// SectionStore fetches tenant business data per section. All queries are
// scoped by the tenant reference id.
type SectionStore interface {
	TenantProfile(ctx context.Context, tenantRef int64) (*model.TenantProfile, error)
	Subscriptions(ctx context.Context, tenantRef int64) ([]model.Subscription, error)
	Branding(ctx context.Context, tenantRef int64) (*model.BrandingSettings, error)

	Invoices(ctx context.Context, tenantRef int64) ([]model.Invoice, error)
	PaymentMethods(ctx context.Context, tenantRef int64) ([]model.PaymentMethod, error)

	AnalyticsEvents(ctx context.Context, tenantRef int64) ([]model.AnalyticsEvent, error)
	Dashboards(ctx context.Context, tenantRef int64) ([]model.Dashboard, error)

	KnowledgeDocuments(ctx context.Context, tenantRef int64) ([]model.KnowledgeDocument, error)
	KnowledgeCategories(ctx context.Context, tenantRef int64) ([]model.KnowledgeCategory, error)

	AuditEntries(ctx context.Context, tenantRef int64) ([]model.AuditEntry, error)
	EmailLog(ctx context.Context, tenantRef int64) ([]model.EmailLogEntry, error)
	Contacts(ctx context.Context, tenantRef int64) ([]model.Contact, error)

	VerticalRecords(ctx context.Context, tenantRef int64) ([]model.VerticalRecord, error)
	FileIndex(ctx context.Context, tenantRef int64) ([]model.FileRef, error)
}
