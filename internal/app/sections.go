package app

import (
	"context"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/registry"
	"github.com/jarabaplatform/tenant-exporter/internal/store"
)

// BuildSectionRegistry wires every installed section to its store-backed
// collection routine. The vertical section is an optional capability and is
// only registered when the deployment enables it; requesting it elsewhere
// silently skips it.
func BuildSectionRegistry(st store.Store, verticalEnabled bool) *registry.Registry {
	sections := st.Sections()
	reg := registry.New()

	reg.Register(model.SectionCore, func(ctx context.Context, tenantRef int64) (model.SectionPayload, error) {
		profile, err := sections.TenantProfile(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		subs, err := sections.Subscriptions(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		branding, err := sections.Branding(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		return &model.CoreSection{Tenant: profile, Subscriptions: subs, Branding: branding}, nil
	})

	reg.Register(model.SectionBilling, func(ctx context.Context, tenantRef int64) (model.SectionPayload, error) {
		invoices, err := sections.Invoices(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		methods, err := sections.PaymentMethods(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		return &model.BillingSection{Invoices: invoices, PaymentMethods: methods}, nil
	})

	reg.Register(model.SectionAnalytics, func(ctx context.Context, tenantRef int64) (model.SectionPayload, error) {
		events, err := sections.AnalyticsEvents(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		dashboards, err := sections.Dashboards(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		return &model.AnalyticsSection{Events: events, Dashboards: dashboards}, nil
	})

	reg.Register(model.SectionKnowledge, func(ctx context.Context, tenantRef int64) (model.SectionPayload, error) {
		docs, err := sections.KnowledgeDocuments(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		cats, err := sections.KnowledgeCategories(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		return &model.KnowledgeSection{Docs: docs, Categories: cats}, nil
	})

	reg.Register(model.SectionOperational, func(ctx context.Context, tenantRef int64) (model.SectionPayload, error) {
		auditRows, err := sections.AuditEntries(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		emails, err := sections.EmailLog(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		contacts, err := sections.Contacts(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		return &model.OperationalSection{AuditEntries: auditRows, EmailLog: emails, Contacts: contacts}, nil
	})

	if verticalEnabled {
		reg.Register(model.SectionVertical, func(ctx context.Context, tenantRef int64) (model.SectionPayload, error) {
			records, err := sections.VerticalRecords(ctx, tenantRef)
			if err != nil {
				return nil, err
			}
			return &model.VerticalSection{Records: records}, nil
		})
	}

	reg.Register(model.SectionFiles, func(ctx context.Context, tenantRef int64) (model.SectionPayload, error) {
		index, err := sections.FileIndex(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		return &model.FilesSection{Index: index}, nil
	})

	return reg
}
