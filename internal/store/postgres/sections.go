package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	dberr "github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

// SectionStore reads tenant business data out of the platform schema. Every
// query is scoped by tenant_ref_id; collection routines wrap these calls.
type SectionStore struct {
	storage *Store
}

func (s *SectionStore) TenantProfile(ctx context.Context, tenantRef int64) (*model.TenantProfile, error) {
	db, err := s.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("sections.tenant_profile", err)
	}

	query := `
		SELECT id, name, domain, plan, COALESCE(vertical, ''), created_at
		FROM platform.tenant
		WHERE id = $1`

	var p model.TenantProfile
	err = db.QueryRow(ctx, query, tenantRef).
		Scan(&p.ID, &p.Name, &p.Domain, &p.Plan, &p.Vertical, &p.CreatedAt)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NewDBNotFoundError("sections.tenant_profile", "tenant not found")
		}
		return nil, dberr.NewDBInternalError("sections.tenant_profile", err)
	}
	return &p, nil
}

func (s *SectionStore) Subscriptions(ctx context.Context, tenantRef int64) ([]model.Subscription, error) {
	query := `
		SELECT id, plan, status, period_start, period_end, canceled_at
		FROM platform.subscription
		WHERE tenant_ref_id = $1
		ORDER BY period_start`

	return queryList(ctx, s.storage, "sections.subscriptions", query, tenantRef,
		func(row pgx.Row) (model.Subscription, error) {
			var v model.Subscription
			err := row.Scan(&v.ID, &v.Plan, &v.Status, &v.PeriodStart, &v.PeriodEnd, &v.CanceledAt)
			return v, err
		})
}

func (s *SectionStore) Branding(ctx context.Context, tenantRef int64) (*model.BrandingSettings, error) {
	db, err := s.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("sections.branding", err)
	}

	query := `
		SELECT COALESCE(logo_uri, ''), COALESCE(primary_color, ''),
		       COALESCE(secondary_color, ''), COALESCE(custom_domain, '')
		FROM platform.branding
		WHERE tenant_ref_id = $1`

	var b model.BrandingSettings
	err = db.QueryRow(ctx, query, tenantRef).
		Scan(&b.LogoURI, &b.PrimaryColor, &b.SecondaryColor, &b.CustomDomain)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			// Branding is optional per tenant.
			return nil, nil
		}
		return nil, dberr.NewDBInternalError("sections.branding", err)
	}
	return &b, nil
}

func (s *SectionStore) Invoices(ctx context.Context, tenantRef int64) ([]model.Invoice, error) {
	query := `
		SELECT id, number, amount_cents, currency, status, issued_at, paid_at
		FROM platform.invoice
		WHERE tenant_ref_id = $1
		ORDER BY issued_at`

	return queryList(ctx, s.storage, "sections.invoices", query, tenantRef,
		func(row pgx.Row) (model.Invoice, error) {
			var v model.Invoice
			err := row.Scan(&v.ID, &v.Number, &v.Amount, &v.Currency, &v.Status, &v.IssuedAt, &v.PaidAt)
			return v, err
		})
}

func (s *SectionStore) PaymentMethods(ctx context.Context, tenantRef int64) ([]model.PaymentMethod, error) {
	query := `
		SELECT id, kind, label, is_active
		FROM platform.payment_method
		WHERE tenant_ref_id = $1
		ORDER BY id`

	return queryList(ctx, s.storage, "sections.payment_methods", query, tenantRef,
		func(row pgx.Row) (model.PaymentMethod, error) {
			var v model.PaymentMethod
			err := row.Scan(&v.ID, &v.Kind, &v.Label, &v.IsActive)
			return v, err
		})
}

func (s *SectionStore) AnalyticsEvents(ctx context.Context, tenantRef int64) ([]model.AnalyticsEvent, error) {
	query := `
		SELECT id, name, COALESCE(actor, ''), COALESCE(path, ''), timestamp
		FROM platform.analytics_event
		WHERE tenant_ref_id = $1
		ORDER BY timestamp`

	return queryList(ctx, s.storage, "sections.analytics_events", query, tenantRef,
		func(row pgx.Row) (model.AnalyticsEvent, error) {
			var v model.AnalyticsEvent
			err := row.Scan(&v.ID, &v.Name, &v.Actor, &v.Path, &v.Timestamp)
			return v, err
		})
}

func (s *SectionStore) Dashboards(ctx context.Context, tenantRef int64) ([]model.Dashboard, error) {
	query := `
		SELECT id, title, COALESCE(layout, ''), widgets
		FROM platform.dashboard
		WHERE tenant_ref_id = $1
		ORDER BY id`

	return queryList(ctx, s.storage, "sections.dashboards", query, tenantRef,
		func(row pgx.Row) (model.Dashboard, error) {
			var v model.Dashboard
			err := row.Scan(&v.ID, &v.Title, &v.Layout, &v.Widgets)
			return v, err
		})
}

func (s *SectionStore) KnowledgeDocuments(ctx context.Context, tenantRef int64) ([]model.KnowledgeDocument, error) {
	query := `
		SELECT id, title, body, COALESCE(category, ''), updated_at
		FROM platform.knowledge_document
		WHERE tenant_ref_id = $1
		ORDER BY id`

	return queryList(ctx, s.storage, "sections.knowledge_documents", query, tenantRef,
		func(row pgx.Row) (model.KnowledgeDocument, error) {
			var v model.KnowledgeDocument
			err := row.Scan(&v.ID, &v.Title, &v.Body, &v.Category, &v.UpdatedAt)
			return v, err
		})
}

func (s *SectionStore) KnowledgeCategories(ctx context.Context, tenantRef int64) ([]model.KnowledgeCategory, error) {
	query := `
		SELECT c.id, c.name, COUNT(d.id)
		FROM platform.knowledge_category c
		LEFT JOIN platform.knowledge_document d
		       ON d.tenant_ref_id = c.tenant_ref_id AND d.category = c.name
		WHERE c.tenant_ref_id = $1
		GROUP BY c.id, c.name
		ORDER BY c.id`

	return queryList(ctx, s.storage, "sections.knowledge_categories", query, tenantRef,
		func(row pgx.Row) (model.KnowledgeCategory, error) {
			var v model.KnowledgeCategory
			err := row.Scan(&v.ID, &v.Name, &v.Count)
			return v, err
		})
}

func (s *SectionStore) AuditEntries(ctx context.Context, tenantRef int64) ([]model.AuditEntry, error) {
	query := `
		SELECT id, event, actor, severity, timestamp
		FROM platform.audit_log
		WHERE tenant_ref_id = $1
		ORDER BY timestamp`

	return queryList(ctx, s.storage, "sections.audit_entries", query, tenantRef,
		func(row pgx.Row) (model.AuditEntry, error) {
			var v model.AuditEntry
			err := row.Scan(&v.ID, &v.Event, &v.Actor, &v.Severity, &v.Timestamp)
			return v, err
		})
}

func (s *SectionStore) EmailLog(ctx context.Context, tenantRef int64) ([]model.EmailLogEntry, error) {
	query := `
		SELECT id, recipient, subject, status, sent_at
		FROM platform.email_log
		WHERE tenant_ref_id = $1
		ORDER BY sent_at`

	return queryList(ctx, s.storage, "sections.email_log", query, tenantRef,
		func(row pgx.Row) (model.EmailLogEntry, error) {
			var v model.EmailLogEntry
			err := row.Scan(&v.ID, &v.To, &v.Subject, &v.Status, &v.SentAt)
			return v, err
		})
}

func (s *SectionStore) Contacts(ctx context.Context, tenantRef int64) ([]model.Contact, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, '')
		FROM platform.contact
		WHERE tenant_ref_id = $1
		ORDER BY id`

	return queryList(ctx, s.storage, "sections.contacts", query, tenantRef,
		func(row pgx.Row) (model.Contact, error) {
			var v model.Contact
			err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone)
			return v, err
		})
}

func (s *SectionStore) VerticalRecords(ctx context.Context, tenantRef int64) ([]model.VerticalRecord, error) {
	query := `
		SELECT id, kind, payload
		FROM platform.vertical_record
		WHERE tenant_ref_id = $1
		ORDER BY id`

	return queryList(ctx, s.storage, "sections.vertical_records", query, tenantRef,
		func(row pgx.Row) (model.VerticalRecord, error) {
			var (
				v       model.VerticalRecord
				payload []byte
			)
			if err := row.Scan(&v.ID, &v.Kind, &payload); err != nil {
				return v, err
			}
			err := json.Unmarshal(payload, &v.Payload)
			return v, err
		})
}

func (s *SectionStore) FileIndex(ctx context.Context, tenantRef int64) ([]model.FileRef, error) {
	query := `
		SELECT name, uri, size, mime, created
		FROM platform.tenant_file
		WHERE tenant_ref_id = $1
		ORDER BY created`

	return queryList(ctx, s.storage, "sections.file_index", query, tenantRef,
		func(row pgx.Row) (model.FileRef, error) {
			var v model.FileRef
			err := row.Scan(&v.Name, &v.URI, &v.Size, &v.Mime, &v.Created)
			return v, err
		})
}

func queryList[T any](ctx context.Context, s *Store, op, query string, arg any, scan func(pgx.Row) (T, error)) ([]T, error) {
	db, err := s.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError(op, err)
	}

	rows, err := db.Query(ctx, query, arg)
	if err != nil {
		return nil, dberr.NewDBInternalError(op, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, dberr.NewDBInternalError(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError(op, err)
	}
	return out, nil
}
