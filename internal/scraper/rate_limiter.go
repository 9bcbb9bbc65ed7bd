package scraper

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests per source at a requests-per-minute budget.
type RateLimiter struct {
	limiters map[string]*sourceLimiter
	mu       sync.RWMutex
}

type sourceLimiter struct {
	limiter *rate.Limiter
	limit   int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*sourceLimiter),
	}
}

// Wait blocks until source may send another request. A non-positive budget
// means unlimited.
func (rl *RateLimiter) Wait(ctx context.Context, source string, requestsPerMinute int) error {
	if requestsPerMinute <= 0 {
		return ctx.Err()
	}
	return rl.getLimiter(source, requestsPerMinute).limiter.Wait(ctx)
}

// getLimiter gets or creates the limiter for a source, replacing it when the
// budget changed.
func (rl *RateLimiter) getLimiter(source string, requestsPerMinute int) *sourceLimiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[source]
	rl.mu.RUnlock()

	if exists && limiter.limit == requestsPerMinute {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := rl.limiters[source]; exists && limiter.limit == requestsPerMinute {
		return limiter
	}

	every := time.Minute / time.Duration(requestsPerMinute)
	limiter = &sourceLimiter{
		limiter: rate.NewLimiter(rate.Every(every), 1),
		limit:   requestsPerMinute,
	}
	rl.limiters[source] = limiter
	return limiter
}
