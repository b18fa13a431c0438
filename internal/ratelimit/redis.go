package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter: INCR per key, EXPIRE set on the
// first hit of the window. Safe under concurrent checks because INCR is
// atomic.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(addr, password string, db, limit int, window time.Duration) (*RedisLimiter, error) {
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

	return &RedisLimiter{
		client: rdb,
		limit:  limit,
		window: window,
		prefix: "ratelimit:export",
	}, nil
}

func (l *RedisLimiter) Check(ctx context.Context, key string) (Decision, error) {
	rkey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, rkey, l.window).Err(); err != nil {
			return Decision{}, err
		}
	}

	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, rkey).Result()
		if err != nil {
			return Decision{}, err
		}
		if ttl < 0 {
			// Counter without a deadline; reset the window rather than
			// locking the tenant out forever.
			ttl = l.window
			_ = l.client.Expire(ctx, rkey, l.window).Err()
		}
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: l.limit - int(count)}, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
