package model

// ExportJob is the queue payload. It must be JSON-serializable.
// Attempt is bumped by whoever resubmits a failed job; the worker itself
// never retries.
type ExportJob struct {
	RecordID    int64    `json:"record_id"`
	TenantID    int64    `json:"tenant_id"`
	TenantRefID int64    `json:"tenant_ref_id"`
	Sections    []string `json:"sections"`
	Attempt     int      `json:"attempt"`
}
