package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter mirrors RedisLimiter's fixed-window behavior in-process.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*window
}

type window struct {
	count int
	reset time.Time
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		now:     time.Now,
		windows: map[string]*window{},
	}
}

// SetClock overrides the time source; test helper.
func (l *MemoryLimiter) SetClock(now func() time.Time) { l.now = now }

func (l *MemoryLimiter) Check(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(l.window)}
		l.windows[key] = w
	}

	w.count++
	if w.count > l.limit {
		return Decision{Allowed: false, RetryAfter: w.reset.Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: l.limit - w.count}, nil
}
