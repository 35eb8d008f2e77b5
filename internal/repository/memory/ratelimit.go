package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// RateLimiter counts requests per client in fixed one-minute windows within
// this process
type RateLimiter struct {
	counters          *cache.Cache
	requestsPerMinute int
	burst             int
	now               func() time.Time
}

// NewRateLimiter creates a new in-process rate limiter
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		counters:          cache.New(time.Minute, 5*time.Minute),
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		now:               time.Now,
	}
}

// Allow records a request for key and reports whether it fits the window.
// Returns (allowed, remaining, resetTime, error).
func (r *RateLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	windowEnd := r.now().Truncate(time.Minute).Add(time.Minute)
	fullKey := fmt.Sprintf("%s:%d", key, windowEnd.Unix())

	// Add fails when the key exists, in which case the counter is bumped
	count := 1
	if err := r.counters.Add(fullKey, 1, time.Minute); err != nil {
		n, err := r.counters.IncrementInt(fullKey, 1)
		if err != nil {
			return false, 0, time.Time{}, fmt.Errorf("failed to increment counter: %w", err)
		}
		count = n
	}

	limit := r.requestsPerMinute + r.burst
	remaining := max(limit-count, 0)

	return count <= limit, remaining, windowEnd, nil
}
