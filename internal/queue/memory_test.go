package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	jobs := []model.ExportJob{
		{RecordID: 1, TenantID: 7, Sections: []string{"core"}},
		{RecordID: 2, TenantID: 7, Sections: []string{"billing"}},
	}
	for _, job := range jobs {
		require.NoError(t, q.Enqueue(ctx, job))
	}
	assert.Equal(t, 2, q.Len())

	for _, want := range jobs {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want.RecordID, got.RecordID)
		assert.Equal(t, want.Sections, got.Sections)
	}
}

func TestMemoryQueueDequeueCancelled(t *testing.T) {
	q := NewMemoryQueue(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
