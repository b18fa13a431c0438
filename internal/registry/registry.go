// Package registry declares which data sections exist in this deployment.
// Optional capabilities register their section at startup; a missing entry
// means "not installed" and is answered with an explicit miss, never an
// error.
package registry

import (
	"context"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

// Collector fetches one section's data for a tenant reference.
type Collector func(ctx context.Context, tenantRef int64) (model.SectionPayload, error)

type Registry struct {
	order      []string
	collectors map[string]Collector
}

func New() *Registry {
	return &Registry{collectors: map[string]Collector{}}
}

// Register binds a collection routine to a section name. Re-registering
// replaces the routine and keeps the original position.
func (r *Registry) Register(name string, c Collector) {
	if _, ok := r.collectors[name]; !ok {
		r.order = append(r.order, name)
	}
	r.collectors[name] = c
}

// Lookup returns the routine for a section, and whether one is installed.
func (r *Registry) Lookup(name string) (Collector, bool) {
	c, ok := r.collectors[name]
	return c, ok
}

// Sections lists registered section names in registration order.
func (r *Registry) Sections() []string {
	return append([]string(nil), r.order...)
}
