package queue

import (
	"context"
	"time"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

// MemoryQueue is a channel-backed Queue for tests and single-process runs.
type MemoryQueue struct {
	jobs chan model.ExportJob
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryQueue{jobs: make(chan model.ExportJob, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job model.ExportJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (model.ExportJob, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-time.After(popTimeout):
		return model.ExportJob{}, ErrEmpty
	case <-ctx.Done():
		return model.ExportJob{}, ctx.Err()
	}
}

// Len reports queued jobs; test helper.
func (q *MemoryQueue) Len() int { return len(q.jobs) }
