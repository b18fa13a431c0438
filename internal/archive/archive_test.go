package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarabaplatform/tenant-exporter/internal/collector"
	"github.com/jarabaplatform/tenant-exporter/internal/filestore"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/registry"
)

func testRecord() *model.ExportRecord {
	return &model.ExportRecord{
		ID:         42,
		TenantID:   7,
		ExportType: model.ExportTypeFull,
	}
}

func collect(t *testing.T, reg *registry.Registry, sections []string) *collector.Result {
	t.Helper()
	return collector.New(reg).CollectAll(context.Background(), 7, sections, nil)
}

func readArchive(t *testing.T, files filestore.Store, key string) map[string][]byte {
	t.Helper()

	rc, err := files.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	entries := map[string][]byte{}
	for _, f := range zr.File {
		r, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		entries[f.Name] = content
	}
	return entries
}

func TestBuildArchiveLayout(t *testing.T) {
	files, err := filestore.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	reg := registry.New()
	reg.Register(model.SectionCore, func(context.Context, int64) (model.SectionPayload, error) {
		return &model.CoreSection{
			Tenant: &model.TenantProfile{ID: 7, Name: "Acme", Domain: "acme.example.org"},
			Subscriptions: []model.Subscription{
				{ID: 1, Plan: "professional", Status: "active"},
			},
		}, nil
	})
	reg.Register(model.SectionAnalytics, func(context.Context, int64) (model.SectionPayload, error) {
		return &model.AnalyticsSection{
			Events: []model.AnalyticsEvent{
				{ID: 101, Name: "page_view", Actor: "user:3", Path: "/dashboard",
					Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
			},
			Dashboards: []model.Dashboard{{ID: 5, Title: "KPIs", Widgets: 4}},
		}, nil
	})
	reg.Register(model.SectionBilling, func(context.Context, int64) (model.SectionPayload, error) {
		return nil, errors.New("billing backend unavailable")
	})

	builder := NewBuilder(files)
	builder.SetClock(func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) })

	data := collect(t, reg, []string{"core", "analytics", "billing"})
	artifact, err := builder.Build(context.Background(), testRecord(), data)
	require.NoError(t, err)

	assert.Equal(t, "tenant_7/tenant_export_tenant_7_20240302_120000.zip", artifact.Path)
	assert.Greater(t, artifact.Size, int64(0))

	entries := readArchive(t, files, artifact.Path)

	var manifest Manifest
	require.NoError(t, json.Unmarshal(entries["manifest.json"], &manifest))
	assert.Equal(t, model.PlatformName, manifest.Platform)
	assert.Equal(t, "full", manifest.ExportType)
	assert.Equal(t, int64(7), manifest.TenantID)
	assert.Equal(t, int64(42), manifest.RecordID)
	assert.Equal(t, []string{"core", "analytics", "billing"}, manifest.Sections)
	assert.Contains(t, manifest.LegalBasis, "Art. 20")

	assert.Contains(t, entries, "README.txt")
	assert.Contains(t, entries, "core/tenant.json")
	assert.Contains(t, entries, "core/subscriptions.json")
	assert.Contains(t, entries, "analytics/events.csv")
	assert.Contains(t, entries, "analytics/dashboards.json")

	csvLines := strings.Split(strings.TrimSpace(string(entries["analytics/events.csv"])), "\n")
	require.Len(t, csvLines, 2)
	assert.Equal(t, "id,name,actor,path,timestamp", csvLines[0])
	assert.Equal(t, "101,page_view,user:3,/dashboard,2024-03-01T10:00:00Z", csvLines[1])

	var sentinel map[string]string
	require.NoError(t, json.Unmarshal(entries["billing/_error.json"], &sentinel))
	assert.Equal(t, "billing backend unavailable", sentinel[model.ErrorSentinelKey])
}

func TestBuildArchiveHashMatchesContent(t *testing.T) {
	files, err := filestore.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	reg := registry.New()
	reg.Register(model.SectionCore, func(context.Context, int64) (model.SectionPayload, error) {
		return &model.CoreSection{Tenant: &model.TenantProfile{ID: 7, Name: "Acme"}}, nil
	})

	builder := NewBuilder(files)
	artifact, err := builder.Build(context.Background(), testRecord(), collect(t, reg, []string{"core"}))
	require.NoError(t, err)

	rc, err := files.Open(context.Background(), artifact.Path)
	require.NoError(t, err)
	defer rc.Close()

	h := sha256.New()
	_, err = io.Copy(h, rc)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), artifact.Hash)
}

func TestBuildArchiveCopiesTenantFiles(t *testing.T) {
	files, err := filestore.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, files.Put(ctx, "tenant_7/uploads/report.pdf", strings.NewReader("pdf-bytes")))

	index := []model.FileRef{
		{Name: "report.pdf", URI: "tenant_7/uploads/report.pdf", Size: 9, Mime: "application/pdf"},
		{Name: "gone.png", URI: "tenant_7/uploads/gone.png", Size: 4, Mime: "image/png"},
	}

	reg := registry.New()
	reg.Register(model.SectionFiles, func(context.Context, int64) (model.SectionPayload, error) {
		return &model.FilesSection{Index: index}, nil
	})

	artifact, err := NewBuilder(files).Build(ctx, testRecord(), collect(t, reg, []string{"files"}))
	require.NoError(t, err)

	entries := readArchive(t, files, artifact.Path)

	// The index lists every file; only present blobs are copied.
	var gotIndex []model.FileRef
	require.NoError(t, json.Unmarshal(entries["files/index.json"], &gotIndex))
	assert.Len(t, gotIndex, 2)

	assert.Equal(t, "pdf-bytes", string(entries["files/report.pdf"]))
	assert.NotContains(t, entries, "files/gone.png")
}
