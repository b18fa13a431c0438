package ratelimit

import (
	"context"
	"time"
)

// Decision is the limiter's answer for one check-and-record call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter answers whether a key may perform another action inside the
// current window, counting the attempt when it is allowed.
type Limiter interface {
	Check(ctx context.Context, key string) (Decision, error)
}
