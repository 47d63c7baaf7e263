package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// RateLimiter implements domain.RateLimiter with one token bucket per key.
// A bucket refills limit tokens per window and holds at most limit.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (rl *RateLimiter) limiter(key string, limit int, window time.Duration) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		every := rate.Every(window / time.Duration(max(limit, 1)))
		l = rate.NewLimiter(every, max(limit, 1))
		rl.limiters[key] = l
	}
	return l
}

// Allow consumes one token for key if available.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	return rl.limiter(key, limit, window).Allow(), nil
}

// Wait blocks until key has a token, at one request per second.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	if err := rl.limiter(key, 1, time.Second).Wait(ctx); err != nil {
		return fmt.Errorf("local: rate limit wait %s: %w", key, err)
	}
	return nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
