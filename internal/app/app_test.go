package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	cfg "github.com/jarabaplatform/tenant-exporter/config"
	"github.com/jarabaplatform/tenant-exporter/internal/archive"
	"github.com/jarabaplatform/tenant-exporter/internal/audit"
	"github.com/jarabaplatform/tenant-exporter/internal/filestore"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/queue"
	"github.com/jarabaplatform/tenant-exporter/internal/ratelimit"
	"github.com/jarabaplatform/tenant-exporter/internal/store/inmemory"
)

type testEnv struct {
	app   *App
	store *inmemory.Store
	queue *queue.MemoryQueue
	audit *audit.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := inmemory.New()
	seedSections(st.Seed())

	files, err := filestore.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	q := queue.NewMemoryQueue(16)
	rec := &audit.Recorder{}

	a := &App{
		Config: &cfg.AppConfig{
			Service: &cfg.ServiceConfig{Id: "tenant-exporter-test", BindAddr: ":0"},
			Export: &cfg.ExportConfig{
				Workers:         2,
				ExpirationHours: 48,
				RateLimitPerDay: 3,
				DefaultSections: []string{"core", "billing", "analytics", "knowledge", "operational", "files"},
				QueueName:       "tenant_export:jobs",
				SweepMinutes:    30,
			},
		},
		Store:    st,
		Queue:    q,
		Limiter:  ratelimit.NewMemoryLimiter(3, 24*time.Hour),
		Files:    files,
		Registry: BuildSectionRegistry(st, false),
		Archive:  archive.NewBuilder(files),
		Audit:    rec,
	}

	return &testEnv{app: a, store: st, queue: q, audit: rec}
}

func seedSections(s *inmemory.SectionStore) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Profile = &model.TenantProfile{
		ID:        7,
		Name:      "Acme Cooperativa",
		Domain:    "acme.example.org",
		Plan:      "professional",
		Vertical:  "agroconecta",
		CreatedAt: created,
	}
	s.Subs = []model.Subscription{
		{ID: 1, Plan: "professional", Status: "active", PeriodStart: created, PeriodEnd: created.AddDate(1, 0, 0)},
	}
	s.InvoiceRows = []model.Invoice{
		{ID: 11, Number: "INV-2024-0011", Amount: 4900, Currency: "EUR", Status: "paid", IssuedAt: created},
	}
	s.Events = []model.AnalyticsEvent{
		{ID: 101, Name: "page_view", Actor: "user:3", Path: "/dashboard", Timestamp: created},
		{ID: 102, Name: "export_requested", Actor: "user:3", Path: "/settings", Timestamp: created.Add(time.Hour)},
	}
	s.KnowledgeDocs = []model.KnowledgeDocument{
		{ID: 21, Title: "Onboarding", Body: "Welcome", Category: "guides", UpdatedAt: created},
	}
	s.Audit = []model.AuditEntry{
		{ID: 31, Event: "login", Actor: 3, Severity: "info", Timestamp: created},
	}
	s.ContactRows = []model.Contact{
		{ID: 41, Name: "Jordan", Email: "jordan@acme.example.org"},
	}
	s.Files = nil
}

// completedRecord walks a record through the full state machine with a
// pre-stored archive file, so download and sweep tests can start from a
// completed export.
func completedRecord(t *testing.T, env *testEnv, expiresAt time.Time, body string) *model.ExportRecord {
	t.Helper()
	ctx := context.Background()
	records := env.app.Store.ExportRecords()

	rec, err := records.Create(ctx, &model.NewExportRecord{
		TenantID:          7,
		TenantRefID:       7,
		RequestedBy:       3,
		ExportType:        model.ExportTypeFull,
		RequestedSections: []string{"core"},
		DownloadToken:     uuid.NewString(),
		ExpiresAt:         expiresAt,
	})
	require.NoError(t, err)

	_, err = records.Claim(ctx, rec.ID)
	require.NoError(t, err)
	require.NoError(t, records.SetPackaging(ctx, rec.ID))

	key := "tenant_7/archive_" + uuid.NewString() + ".zip"
	require.NoError(t, env.app.Files.Put(ctx, key, strings.NewReader(body)))

	require.NoError(t, records.MarkCompleted(ctx, rec.ID, &model.CompletedExport{
		FilePath:      key,
		FileSize:      int64(len(body)),
		FileHash:      "deadbeef",
		SectionCounts: map[string]int{"core": 2},
	}))

	out, err := records.Get(ctx, rec.ID)
	require.NoError(t, err)
	return out
}
