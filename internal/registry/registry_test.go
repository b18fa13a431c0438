package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

func payload(count int) Collector {
	return func(context.Context, int64) (model.SectionPayload, error) {
		return &model.VerticalSection{Records: make([]model.VerticalRecord, count)}, nil
	}
}

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	reg.Register("core", payload(1))
	reg.Register("billing", payload(2))

	c, ok := reg.Lookup("core")
	require.True(t, ok)
	p, err := c(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, p.RecordCount())

	_, ok = reg.Lookup("vertical")
	assert.False(t, ok)

	assert.Equal(t, []string{"core", "billing"}, reg.Sections())
}

func TestReRegisterKeepsPosition(t *testing.T) {
	reg := New()
	reg.Register("core", payload(1))
	reg.Register("billing", payload(1))
	reg.Register("core", payload(9))

	assert.Equal(t, []string{"core", "billing"}, reg.Sections())

	c, ok := reg.Lookup("core")
	require.True(t, ok)
	p, err := c(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 9, p.RecordCount())
}
