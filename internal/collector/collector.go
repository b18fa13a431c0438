// Package collector gathers tenant data section by section. One broken data
// source never blocks export of the rest: a failed section becomes a sentinel
// entry and the loop continues.
package collector

import (
	"context"
	"log/slog"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/registry"
)

// ProgressFunc receives the percentage of sections processed so far and the
// name of the section just finished.
type ProgressFunc func(percent int, section string)

// Entry is one collected section: either a payload or an error message.
type Entry struct {
	Payload model.SectionPayload
	Err     string
}

func (e Entry) Failed() bool { return e.Err != "" }

// Result holds collected sections in processing order.
type Result struct {
	order   []string
	entries map[string]Entry
}

// Sections lists collected section keys in order, failed ones included.
func (r *Result) Sections() []string {
	return append([]string(nil), r.order...)
}

func (r *Result) Get(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// SectionCounts maps each successfully collected section to its record
// count. Failed sections are skipped, mirroring the sentinel-key rule.
func (r *Result) SectionCounts() map[string]int {
	counts := make(map[string]int, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		if e.Failed() {
			continue
		}
		counts[name] = e.Payload.RecordCount()
	}
	return counts
}

func (r *Result) add(name string, e Entry) {
	if _, ok := r.entries[name]; !ok {
		r.order = append(r.order, name)
	}
	r.entries[name] = e
}

type DataCollector struct {
	registry *registry.Registry
}

func New(reg *registry.Registry) *DataCollector {
	return &DataCollector{registry: reg}
}

// CollectAll processes the requested sections in caller order, deduplicated.
// Sections without a registered routine are silently omitted (optional
// capability absent). A routine error is recorded as a sentinel entry and
// collection continues. onProgress runs after every processed section.
func (c *DataCollector) CollectAll(ctx context.Context, tenantRef int64, sections []string, onProgress ProgressFunc) *Result {
	requested := dedupe(sections)
	result := &Result{entries: map[string]Entry{}}

	total := len(requested)
	done := 0
	for _, name := range requested {
		routine, ok := c.registry.Lookup(name)
		if !ok {
			slog.DebugContext(ctx, "tenant_exporter.collector.section_not_installed",
				slog.String("section", name))
			done++
			reportProgress(onProgress, done, total, name)
			continue
		}

		payload, err := routine(ctx, tenantRef)
		if err != nil {
			slog.WarnContext(ctx, "tenant_exporter.collector.section_failed",
				slog.String("section", name),
				slog.String("error", err.Error()))
			result.add(name, Entry{Err: err.Error()})
		} else {
			result.add(name, Entry{Payload: payload})
		}

		done++
		reportProgress(onProgress, done, total, name)
	}

	return result
}

func reportProgress(onProgress ProgressFunc, done, total int, section string) {
	if onProgress == nil || total == 0 {
		return
	}
	onProgress(100*done/total, section)
}

func dedupe(sections []string) []string {
	seen := make(map[string]struct{}, len(sections))
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
