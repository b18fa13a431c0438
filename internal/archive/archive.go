// Package archive packages collected tenant data into a single zip: a
// machine-readable manifest, a human-readable README, and one directory per
// section with JSON, CSV and verbatim file entries.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jarabaplatform/tenant-exporter/internal/collector"
	"github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/filestore"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

const legalBasis = "Art. 20 — Right to Data Portability"

// Manifest identifies one export archive.
type Manifest struct {
	Platform    string   `json:"platform"`
	ExportType  string   `json:"export_type"`
	TenantID    int64    `json:"tenant_id"`
	GeneratedAt string   `json:"generated_at"`
	RecordID    int64    `json:"record_id"`
	Sections    []string `json:"sections"`
	LegalBasis  string   `json:"legal_basis"`
}

// Artifact describes the finished archive. Path is the file-store key the
// record persists; Hash is the hex sha-256 of the final bytes and is never
// recomputed after creation.
type Artifact struct {
	Path string
	Size int64
	Hash string
}

type Builder struct {
	files filestore.Store
	now   func() time.Time
}

func NewBuilder(files filestore.Store) *Builder {
	return &Builder{files: files, now: time.Now}
}

// SetClock overrides the time source; test helper.
func (b *Builder) SetClock(now func() time.Time) { b.now = now }

// Build writes the archive for one record. Any write failure aborts the
// whole build; no partial archive survives into the file store.
func (b *Builder) Build(ctx context.Context, rec *model.ExportRecord, data *collector.Result) (*Artifact, error) {
	ctx, span := otel.Tracer(model.AppServiceName).Start(ctx, "export.archive.build")
	span.SetAttributes(
		attribute.Int64("export.record_id", rec.ID),
		attribute.Int64("tenant.id", rec.TenantID),
		attribute.Int("export.sections", len(data.Sections())),
	)
	defer span.End()

	now := b.now()
	name := fmt.Sprintf("tenant_export_tenant_%d_%s.zip", rec.TenantID, now.Format("20060102_150405"))
	key := path.Join(fmt.Sprintf("tenant_%d", rec.TenantID), name)

	tmp, err := os.CreateTemp("", "tenant_export_*.zip")
	if err != nil {
		return nil, errors.New("cannot create archive scratch file", errors.WithCause(err))
	}
	defer os.Remove(tmp.Name())

	if err := b.writeArchive(ctx, tmp, rec, data, now); err != nil {
		tmp.Close()
		return nil, err
	}

	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return nil, errors.New("cannot stat archive", errors.WithCause(err))
	}

	hash, err := hashFile(tmp)
	if err != nil {
		tmp.Close()
		return nil, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, errors.New("cannot rewind archive", errors.WithCause(err))
	}
	if err := b.files.Put(ctx, key, tmp); err != nil {
		tmp.Close()
		return nil, errors.New("cannot store archive", errors.WithCause(err))
	}
	tmp.Close()

	return &Artifact{Path: key, Size: info.Size(), Hash: hash}, nil
}

func (b *Builder) writeArchive(ctx context.Context, w io.Writer, rec *model.ExportRecord, data *collector.Result, now time.Time) error {
	zw := zip.NewWriter(w)

	manifest := Manifest{
		Platform:    model.PlatformName,
		ExportType:  string(rec.ExportType),
		TenantID:    rec.TenantID,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		RecordID:    rec.ID,
		Sections:    data.Sections(),
		LegalBasis:  legalBasis,
	}
	if err := writeJSON(zw, "manifest.json", manifest); err != nil {
		return err
	}
	if err := writeEntry(zw, "README.txt", []byte(readme(manifest))); err != nil {
		return err
	}

	for _, section := range data.Sections() {
		entry, _ := data.Get(section)
		if entry.Failed() {
			sentinel := map[string]string{model.ErrorSentinelKey: entry.Err}
			if err := writeJSON(zw, path.Join(section, "_error.json"), sentinel); err != nil {
				return err
			}
			continue
		}
		if err := b.writeSection(ctx, zw, section, entry.Payload); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return errors.New("cannot finalize archive", errors.WithCause(err))
	}
	return nil
}

func (b *Builder) writeSection(ctx context.Context, zw *zip.Writer, section string, payload model.SectionPayload) error {
	if tab, ok := payload.(model.TabularPayload); ok {
		if err := writeCSV(zw, path.Join(section, tab.TabularName()+".csv"), tab.Header(), tab.Rows()); err != nil {
			return err
		}
	}

	if fp, ok := payload.(model.FilePayload); ok {
		index := fp.FileIndex()
		if err := writeJSON(zw, path.Join(section, "index.json"), index); err != nil {
			return err
		}
		for _, ref := range index {
			if err := b.copyBlob(ctx, zw, section, ref); err != nil {
				return err
			}
		}
	}

	if doc, ok := payload.(model.DocumentPayload); ok {
		docs := doc.Documents()
		names := make([]string, 0, len(docs))
		for name := range docs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := writeJSON(zw, path.Join(section, name+".json"), docs[name]); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyBlob copies one referenced file verbatim under its original name.
// A missing blob is skipped: the index still lists it, matching the
// best-effort file copy of the export contract.
func (b *Builder) copyBlob(ctx context.Context, zw *zip.Writer, section string, ref model.FileRef) error {
	src, err := b.files.Open(ctx, ref.URI)
	if err != nil {
		if errors.IsNotFound(err) {
			slog.WarnContext(ctx, "tenant_exporter.archive.blob_missing",
				slog.String("uri", ref.URI))
			return nil
		}
		return errors.New("cannot open tenant file", errors.WithCause(err))
	}
	defer src.Close()

	dst, err := zw.Create(path.Join(section, path.Base(ref.Name)))
	if err != nil {
		return errors.New("cannot add file entry", errors.WithCause(err))
	}
	if _, err := io.Copy(dst, src); err != nil {
		return errors.New("cannot copy tenant file", errors.WithCause(err))
	}
	return nil
}

func writeJSON(zw *zip.Writer, name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.New("cannot serialize "+name, errors.WithCause(err))
	}
	return writeEntry(zw, name, buf.Bytes())
}

func writeCSV(zw *zip.Writer, name string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return errors.New("cannot serialize "+name, errors.WithCause(err))
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.New("cannot serialize "+name, errors.WithCause(err))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.New("cannot serialize "+name, errors.WithCause(err))
	}
	return writeEntry(zw, name, buf.Bytes())
}

func writeEntry(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.New("cannot add archive entry "+name, errors.WithCause(err))
	}
	if _, err := w.Write(content); err != nil {
		return errors.New("cannot write archive entry "+name, errors.WithCause(err))
	}
	return nil
}

func hashFile(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", errors.New("cannot rewind archive", errors.WithCause(err))
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.New("cannot hash archive", errors.WithCause(err))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func readme(m Manifest) string {
	return fmt.Sprintf(`TENANT DATA EXPORT — JARABA IMPACT PLATFORM
==================================================

Platform: %s
Export type: %s
Tenant ID: %d
Generated: %s
Legal basis: %s

PACKAGE STRUCTURE:
------------------------------
manifest.json    — export metadata
core/            — tenant profile, subscriptions, branding
billing/         — invoices and payment methods
analytics/       — analytics events and dashboards
knowledge/       — documents and knowledge base
operational/     — audit, email log, contacts
vertical/        — vertical-specific records
files/           — original tenant files

FORMAT:
------------------------------
Data is provided as JSON (readable) and CSV (tabular).
Files keep their original names.

SUPPORT:
For questions about this export, contact
soporte@plataformadeecosistemas.com
`, m.Platform, m.ExportType, m.TenantID, m.GeneratedAt, m.LegalBasis)
}
