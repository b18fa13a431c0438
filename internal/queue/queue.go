package queue

import (
	"context"
	"errors"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

// ErrEmpty is returned by Dequeue when no job arrived within the poll
// window. Consumers loop on it.
var ErrEmpty = errors.New("queue empty (timeout)")

// Queue is the work-distribution channel between the coordinator and the
// export workers. Delivery is at-least-once; the worker's claim guard makes
// duplicate delivery a no-op.
type Queue interface {
	Enqueue(ctx context.Context, job model.ExportJob) error
	Dequeue(ctx context.Context) (model.ExportJob, error)
}
