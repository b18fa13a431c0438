package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jarabaplatform/tenant-exporter/internal/model"
)

const popTimeout = 5 * time.Second

// RedisQueue is a Redis list used as the job queue: LPUSH to produce,
// BRPOP to consume.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(addr, password string, db int, key string) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot connect to Redis at %s: %w", addr, err)
	}

	return &RedisQueue{client: rdb, key: key}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job model.ExportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (model.ExportJob, error) {
	var job model.ExportJob

	result, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
	if err != nil {
		if err == redis.Nil {
			return job, ErrEmpty
		}
		return job, err
	}
	if len(result) < 2 {
		return job, ErrEmpty
	}

	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return job, fmt.Errorf("malformed job payload: %w", err)
	}
	return job, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
