package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
	"github.com/jarabaplatform/tenant-exporter/internal/registry"
)

func staticSection(count int) registry.Collector {
	return func(context.Context, int64) (model.SectionPayload, error) {
		return &model.VerticalSection{Records: make([]model.VerticalRecord, count)}, nil
	}
}

func TestCollectAllOrderAndCounts(t *testing.T) {
	reg := registry.New()
	reg.Register("core", staticSection(2))
	reg.Register("billing", staticSection(5))

	result := New(reg).CollectAll(context.Background(), 7, []string{"billing", "core"}, nil)

	assert.Equal(t, []string{"billing", "core"}, result.Sections())
	assert.Equal(t, map[string]int{"billing": 5, "core": 2}, result.SectionCounts())
}

func TestCollectAllSectionFailureContinues(t *testing.T) {
	reg := registry.New()
	reg.Register("core", staticSection(1))
	reg.Register("billing", func(context.Context, int64) (model.SectionPayload, error) {
		return nil, errors.New("billing source down")
	})
	reg.Register("files", staticSection(3))

	result := New(reg).CollectAll(context.Background(), 7, []string{"core", "billing", "files"}, nil)

	require.Equal(t, []string{"core", "billing", "files"}, result.Sections())

	entry, ok := result.Get("billing")
	require.True(t, ok)
	assert.True(t, entry.Failed())
	assert.Equal(t, "billing source down", entry.Err)

	counts := result.SectionCounts()
	assert.Equal(t, map[string]int{"core": 1, "files": 3}, counts)
}

func TestCollectAllUnknownSectionOmitted(t *testing.T) {
	reg := registry.New()
	reg.Register("core", staticSection(1))

	result := New(reg).CollectAll(context.Background(), 7, []string{"core", "vertical"}, nil)

	assert.Equal(t, []string{"core"}, result.Sections())
	_, ok := result.Get("vertical")
	assert.False(t, ok)
}

func TestCollectAllProgressReachesHundred(t *testing.T) {
	reg := registry.New()
	reg.Register("core", staticSection(1))
	reg.Register("billing", staticSection(1))

	var percents []int
	result := New(reg).CollectAll(context.Background(), 7,
		[]string{"core", "billing", "vertical"},
		func(percent int, _ string) { percents = append(percents, percent) })

	// Progress advances for skipped sections too, so the bar completes.
	require.Equal(t, []int{33, 66, 100}, percents)
	assert.Len(t, result.Sections(), 2)
}

func TestCollectAllDeduplicatesRequest(t *testing.T) {
	calls := 0
	reg := registry.New()
	reg.Register("core", func(context.Context, int64) (model.SectionPayload, error) {
		calls++
		return &model.VerticalSection{}, nil
	})

	result := New(reg).CollectAll(context.Background(), 7, []string{"core", "core", "core"}, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"core"}, result.Sections())
}
