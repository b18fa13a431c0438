// Package inmemory holds a map-backed Store used by tests and single-node
// development runs. It honors the same state-machine rules as the postgres
// implementation: claim guard, monotonic progress, no physical deletes.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	dberr "github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/store"
)

type Store struct {
	records  *ExportRecordStore
	sections *SectionStore
}

func New() *Store {
	return &Store{
		records:  &ExportRecordStore{byID: map[int64]*model.ExportRecord{}},
		sections: &SectionStore{},
	}
}

func (s *Store) ExportRecords() store.ExportRecordStore { return s.records }
func (s *Store) Sections() store.SectionStore           { return s.sections }
func (s *Store) Open() error                            { return nil }
func (s *Store) Close() error                           { return nil }

// Seed returns the mutable section fixtures.
func (s *Store) Seed() *SectionStore { return s.sections }

type ExportRecordStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.ExportRecord
}

func (s *ExportRecordStore) Create(_ context.Context, input *model.NewExportRecord) (*model.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.byID {
		if r.DownloadToken == input.DownloadToken {
			return nil, &dberr.DBUniqueViolationError{
				DBError: *dberr.NewDBError("export_record.create", "duplicate download token"),
				Column:  "download_token",
			}
		}
	}

	s.nextID++
	rec := &model.ExportRecord{
		ID:                s.nextID,
		TenantID:          input.TenantID,
		TenantRefID:       input.TenantRefID,
		RequestedBy:       input.RequestedBy,
		ExportType:        input.ExportType,
		Status:            model.ExportStatusQueued,
		RequestedSections: append([]string(nil), input.RequestedSections...),
		DownloadToken:     input.DownloadToken,
		Created:           time.Now(),
		ExpiresAt:         input.ExpiresAt,
	}
	s.byID[rec.ID] = rec
	return copyRecord(rec), nil
}

func (s *ExportRecordStore) Get(_ context.Context, id int64) (*model.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, dberr.NewDBNotFoundError("export_record.get", "export record not found")
	}
	return copyRecord(rec), nil
}

func (s *ExportRecordStore) GetByToken(_ context.Context, token string) (*model.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.byID {
		if rec.DownloadToken == token {
			return copyRecord(rec), nil
		}
	}
	return nil, dberr.NewDBNotFoundError("export_record.get_by_token", "export record not found")
}

func (s *ExportRecordStore) Claim(_ context.Context, id int64) (*model.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || !rec.Claimable() {
		return nil, dberr.NewDBNotFoundError("export_record.claim", "record missing or not claimable")
	}
	rec.Status = model.ExportStatusCollecting
	return copyRecord(rec), nil
}

func (s *ExportRecordStore) SetProgress(_ context.Context, id int64, progress int, phase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return dberr.NewDBNotFoundError("export_record.set_progress", "no export record matched")
	}
	if progress > rec.Progress {
		rec.Progress = progress
	}
	rec.CurrentPhase = phase
	return nil
}

func (s *ExportRecordStore) SetPackaging(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.Status != model.ExportStatusCollecting {
		return dberr.NewDBNotFoundError("export_record.set_packaging", "no export record matched")
	}
	rec.Status = model.ExportStatusPackaging
	if rec.Progress < 90 {
		rec.Progress = 90
	}
	rec.CurrentPhase = "packaging"
	return nil
}

func (s *ExportRecordStore) MarkCompleted(_ context.Context, id int64, result *model.CompletedExport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.Status != model.ExportStatusPackaging {
		return dberr.NewDBNotFoundError("export_record.mark_completed", "no export record matched")
	}
	now := time.Now()
	rec.Status = model.ExportStatusCompleted
	rec.Progress = 100
	rec.CurrentPhase = "complete"
	rec.FilePath = result.FilePath
	rec.FileSize = result.FileSize
	rec.FileHash = result.FileHash
	rec.SectionCounts = result.SectionCounts
	rec.CompletedAt = &now
	return nil
}

func (s *ExportRecordStore) MarkFailed(_ context.Context, id int64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.Status == model.ExportStatusCompleted || rec.Status == model.ExportStatusExpired {
		return dberr.NewDBNotFoundError("export_record.mark_failed", "no export record matched")
	}
	rec.Status = model.ExportStatusFailed
	rec.ErrorMessage = message
	return nil
}

func (s *ExportRecordStore) IncrementDownloadCount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return dberr.NewDBNotFoundError("export_record.increment_downloads", "no export record matched")
	}
	rec.DownloadCount++
	return nil
}

func (s *ExportRecordStore) ListByTenant(_ context.Context, tenantID int64, limit int) ([]*model.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.ExportRecord
	for _, rec := range s.byID {
		if rec.TenantID == tenantID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID > out[j].ID
		}
		return out[i].Created.After(out[j].Created)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ExportRecordStore) ListExpired(_ context.Context, now time.Time) ([]*model.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.ExportRecord
	for _, rec := range s.byID {
		if rec.Status == model.ExportStatusCompleted && rec.ExpiresAt.Before(now) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ExportRecordStore) MarkExpired(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.Status != model.ExportStatusCompleted {
		return dberr.NewDBNotFoundError("export_record.mark_expired", "no export record matched")
	}
	rec.Status = model.ExportStatusExpired
	rec.FilePath = ""
	return nil
}

func copyRecord(rec *model.ExportRecord) *model.ExportRecord {
	cp := *rec
	cp.RequestedSections = append([]string(nil), rec.RequestedSections...)
	if rec.SectionCounts != nil {
		cp.SectionCounts = make(map[string]int, len(rec.SectionCounts))
		for k, v := range rec.SectionCounts {
			cp.SectionCounts[k] = v
		}
	}
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// SectionStore serves fixture data set directly on its fields.
type SectionStore struct {
	Profile        *model.TenantProfile
	Subs           []model.Subscription
	Brand          *model.BrandingSettings
	InvoiceRows    []model.Invoice
	Payments       []model.PaymentMethod
	Events         []model.AnalyticsEvent
	DashboardRows  []model.Dashboard
	KnowledgeDocs  []model.KnowledgeDocument
	KnowledgeCats  []model.KnowledgeCategory
	Audit          []model.AuditEntry
	Emails         []model.EmailLogEntry
	ContactRows    []model.Contact
	VerticalRows   []model.VerticalRecord
	Files          []model.FileRef
}

func (s *SectionStore) TenantProfile(context.Context, int64) (*model.TenantProfile, error) {
	if s.Profile == nil {
		return nil, dberr.NewDBNotFoundError("sections.tenant_profile", "tenant not found")
	}
	return s.Profile, nil
}

func (s *SectionStore) Subscriptions(context.Context, int64) ([]model.Subscription, error) {
	return s.Subs, nil
}

func (s *SectionStore) Branding(context.Context, int64) (*model.BrandingSettings, error) {
	return s.Brand, nil
}

func (s *SectionStore) Invoices(context.Context, int64) ([]model.Invoice, error) {
	return s.InvoiceRows, nil
}

func (s *SectionStore) PaymentMethods(context.Context, int64) ([]model.PaymentMethod, error) {
	return s.Payments, nil
}

func (s *SectionStore) AnalyticsEvents(context.Context, int64) ([]model.AnalyticsEvent, error) {
	return s.Events, nil
}

func (s *SectionStore) Dashboards(context.Context, int64) ([]model.Dashboard, error) {
	return s.DashboardRows, nil
}

func (s *SectionStore) KnowledgeDocuments(context.Context, int64) ([]model.KnowledgeDocument, error) {
	return s.KnowledgeDocs, nil
}

func (s *SectionStore) KnowledgeCategories(context.Context, int64) ([]model.KnowledgeCategory, error) {
	return s.KnowledgeCats, nil
}

func (s *SectionStore) AuditEntries(context.Context, int64) ([]model.AuditEntry, error) {
	return s.Audit, nil
}

func (s *SectionStore) EmailLog(context.Context, int64) ([]model.EmailLogEntry, error) {
	return s.Emails, nil
}

func (s *SectionStore) Contacts(context.Context, int64) ([]model.Contact, error) {
	return s.ContactRows, nil
}

func (s *SectionStore) VerticalRecords(context.Context, int64) ([]model.VerticalRecord, error) {
	return s.VerticalRows, nil
}

func (s *SectionStore) FileIndex(context.Context, int64) ([]model.FileRef, error) {
	return s.Files, nil
}
