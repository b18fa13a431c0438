package model

import (
	"strconv"
	"time"
)

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

// Section identifiers. A deployment may leave optional sections (vertical)
// unregistered; requesting them is not an error.
const (
	SectionCore        = "core"
	SectionBilling     = "billing"
	SectionAnalytics   = "analytics"
	SectionKnowledge   = "knowledge"
	SectionOperational = "operational"
	SectionVertical    = "vertical"
	SectionFiles       = "files"
)

// ErrorSentinelKey marks a section whose collection routine failed. Keys
// with this prefix are excluded from record counting.
const ErrorSentinelKey = "_error"

// SectionPayload is the contract every collected section satisfies.
type SectionPayload interface {
	Section() string
	RecordCount() int
}

// DocumentPayload exposes named JSON documents, one file per name.
type DocumentPayload interface {
	SectionPayload
	Documents() map[string]any
}

// TabularPayload exposes high-volume rows serialized as CSV.
type TabularPayload interface {
	SectionPayload
	TabularName() string
	Header() []string
	Rows() [][]string
}

// FilePayload exposes a file index whose referenced blobs are copied
// verbatim into the archive.
type FilePayload interface {
	SectionPayload
	FileIndex() []FileRef
}

// FileRef points at one stored tenant file.
type FileRef struct {
	Name    string    `json:"name"`
	URI     string    `json:"uri"`
	Size    int64     `json:"size"`
	Mime    string    `json:"mime"`
	Created time.Time `json:"created"`
}

// ---- core ----

type TenantProfile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Plan      string    `json:"plan"`
	Vertical  string    `json:"vertical"`
	CreatedAt time.Time `json:"created_at"`
}

type Subscription struct {
	ID          int64      `json:"id"`
	Plan        string     `json:"plan"`
	Status      string     `json:"status"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
}

type BrandingSettings struct {
	LogoURI        string `json:"logo_uri"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	CustomDomain   string `json:"custom_domain"`
}

type CoreSection struct {
	Tenant        *TenantProfile    `json:"tenant"`
	Subscriptions []Subscription    `json:"subscriptions"`
	Branding      *BrandingSettings `json:"branding"`
}

func (s *CoreSection) Section() string { return SectionCore }

func (s *CoreSection) RecordCount() int {
	n := len(s.Subscriptions)
	if s.Tenant != nil {
		n++
	}
	if s.Branding != nil {
		n++
	}
	return n
}

func (s *CoreSection) Documents() map[string]any {
	docs := map[string]any{
		"tenant":        s.Tenant,
		"subscriptions": s.Subscriptions,
	}
	if s.Branding != nil {
		docs["branding"] = s.Branding
	}
	return docs
}

// ---- billing ----

type Invoice struct {
	ID       int64     `json:"id"`
	Number   string    `json:"number"`
	Amount   int64     `json:"amount_cents"`
	Currency string    `json:"currency"`
	Status   string    `json:"status"`
	IssuedAt time.Time `json:"issued_at"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
}

type PaymentMethod struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	IsActive bool   `json:"is_active"`
}

type BillingSection struct {
	Invoices       []Invoice       `json:"invoices"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}

func (s *BillingSection) Section() string { return SectionBilling }

func (s *BillingSection) RecordCount() int {
	return len(s.Invoices) + len(s.PaymentMethods)
}

func (s *BillingSection) Documents() map[string]any {
	return map[string]any{
		"invoices":        s.Invoices,
		"payment_methods": s.PaymentMethods,
	}
}

// ---- analytics ----

type AnalyticsEvent struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Actor     string    `json:"actor"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type Dashboard struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Layout  string `json:"layout"`
	Widgets int    `json:"widgets"`
}

// AnalyticsSection serializes events as CSV and dashboards as JSON.
type AnalyticsSection struct {
	Events     []AnalyticsEvent `json:"events"`
	Dashboards []Dashboard      `json:"dashboards"`
}

func (s *AnalyticsSection) Section() string { return SectionAnalytics }

func (s *AnalyticsSection) RecordCount() int {
	return len(s.Events) + len(s.Dashboards)
}

func (s *AnalyticsSection) Documents() map[string]any {
	if len(s.Dashboards) == 0 {
		return nil
	}
	return map[string]any{"dashboards": s.Dashboards}
}

func (s *AnalyticsSection) TabularName() string { return "events" }

func (s *AnalyticsSection) Header() []string {
	return []string{"id", "name", "actor", "path", "timestamp"}
}

func (s *AnalyticsSection) Rows() [][]string {
	rows := make([][]string, 0, len(s.Events))
	for _, e := range s.Events {
		rows = append(rows, []string{
			formatInt(e.ID),
			e.Name,
			e.Actor,
			e.Path,
			e.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// ---- knowledge ----

type KnowledgeDocument struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updated_at"`
}

type KnowledgeCategory struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type KnowledgeSection struct {
	Docs       []KnowledgeDocument `json:"documents"`
	Categories []KnowledgeCategory `json:"categories"`
}

func (s *KnowledgeSection) Section() string { return SectionKnowledge }

func (s *KnowledgeSection) RecordCount() int {
	return len(s.Docs) + len(s.Categories)
}

func (s *KnowledgeSection) Documents() map[string]any {
	return map[string]any{
		"documents":  s.Docs,
		"categories": s.Categories,
	}
}

// ---- operational ----

type AuditEntry struct {
	ID        int64     `json:"id"`
	Event     string    `json:"event"`
	Actor     int64     `json:"actor"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

type EmailLogEntry struct {
	ID      int64     `json:"id"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Status  string    `json:"status"`
	SentAt  time.Time `json:"sent_at"`
}

type Contact struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type OperationalSection struct {
	AuditEntries []AuditEntry    `json:"audit_entries"`
	EmailLog     []EmailLogEntry `json:"email_log"`
	Contacts     []Contact       `json:"contacts"`
}

func (s *OperationalSection) Section() string { return SectionOperational }

func (s *OperationalSection) RecordCount() int {
	return len(s.AuditEntries) + len(s.EmailLog) + len(s.Contacts)
}

func (s *OperationalSection) Documents() map[string]any {
	return map[string]any{
		"audit":     s.AuditEntries,
		"email_log": s.EmailLog,
		"contacts":  s.Contacts,
	}
}

// ---- vertical ----

// VerticalRecord is a vertical-specific business object. The payload is kept
// schemaless because each vertical ships its own shape.
type VerticalRecord struct {
	ID      int64          `json:"id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

type VerticalSection struct {
	Records []VerticalRecord `json:"records"`
}

func (s *VerticalSection) Section() string { return SectionVertical }

func (s *VerticalSection) RecordCount() int { return len(s.Records) }

func (s *VerticalSection) Documents() map[string]any {
	return map[string]any{"records": s.Records}
}

// ---- files ----

type FilesSection struct {
	Index []FileRef `json:"index"`
}

func (s *FilesSection) Section() string { return SectionFiles }

func (s *FilesSection) RecordCount() int { return len(s.Index) }

func (s *FilesSection) FileIndex() []FileRef { return s.Index }
