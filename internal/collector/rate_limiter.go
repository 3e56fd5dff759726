package collector

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces queries sent to ClickHouse. A nil *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a token bucket allowing qps queries per second
// with a burst of one. It returns nil when qps is not positive.
func NewRateLimiter(qps int) *RateLimiter {
	if qps <= 0 {
		return nil
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
	}
}

// Wait blocks until the next query may be sent
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
