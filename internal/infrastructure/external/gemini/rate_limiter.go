package gemini

import (
	"context"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER - Token Bucket implementation
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiter spaces out generation calls to stay inside the API quota.
// A 429 from the API empties the bucket and blocks until Retry-After passes.
type RateLimiter struct {
	mu sync.Mutex

	maxTokens    float64   // Maximum tokens in the bucket
	refillRate   float64   // Tokens added per second
	tokens       float64   // Current token count
	lastRefill   time.Time // Last time tokens were added
	blockedUntil time.Time // Set by RecordRateLimitHit

	now func() time.Time
}

// RateLimiterConfig contains configuration for the rate limiter.
type RateLimiterConfig struct {
	// RequestsPerMinute is the sustained request rate. Zero disables limiting.
	RequestsPerMinute float64

	// BurstSize is the maximum number of back-to-back requests.
	BurstSize int
}

// DefaultRateLimiterConfig matches the free-tier quota of the flash models.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerMinute: 15,
		BurstSize:         3,
	}
}

// NewRateLimiter creates a RateLimiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	burst := config.BurstSize
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		maxTokens:  float64(burst),
		refillRate: config.RequestsPerMinute / 60,
		tokens:     float64(burst),
		now:        time.Now,
	}
	rl.lastRefill = rl.now()
	return rl
}

// Wait blocks until a request may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait, ok := rl.tryAcquire()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire takes a token or reports how long to wait for one.
func (rl *RateLimiter) tryAcquire() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.refillRate <= 0 {
		return 0, true
	}

	now := rl.now()
	if now.Before(rl.blockedUntil) {
		return rl.blockedUntil.Sub(now), false
	}

	rl.refill(now)
	if rl.tokens < 1 {
		return time.Duration((1 - rl.tokens) / rl.refillRate * float64(time.Second)), false
	}

	rl.tokens--
	return 0, true
}

// refill must be called with the lock held.
func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

// RecordRateLimitHit empties the bucket and blocks for retryAfter.
func (rl *RateLimiter) RecordRateLimitHit(retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.tokens = 0
	rl.lastRefill = now
	if retryAfter > 0 {
		rl.blockedUntil = now.Add(retryAfter)
	}
}
