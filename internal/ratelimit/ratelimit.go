// Package ratelimit implements the token-bucket gate consulted before every
// transaction creation. Buckets are tracked per owner: a burst capacity that
// drains one token per call and refills at a fixed interval.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the rate-limit collaborator contract: allow the operation or
// deny it with a retry hint.
type Limiter interface {
	Check(key string, cost int) (allowed bool, retryAfter time.Duration)
}

// TokenBucket keeps one bucket per key. The zero duration refill disables
// refilling entirely, which only makes sense in tests.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	refill  rate.Limit
	burst   int

	// now is replaceable in tests to make refill behavior deterministic.
	now func() time.Time
}

// NewTokenBucket creates a limiter where each key may burst up to burst
// operations and regains one token every refillEvery.
func NewTokenBucket(refillEvery time.Duration, burst int) *TokenBucket {
	return &TokenBucket{
		buckets: make(map[string]*rate.Limiter),
		refill:  rate.Every(refillEvery),
		burst:   burst,
		now:     time.Now,
	}
}

// Check implements Limiter. It consumes cost tokens from the key's bucket if
// available; otherwise it consumes nothing and reports how long until the
// tokens would be available.
func (t *TokenBucket) Check(key string, cost int) (bool, time.Duration) {
	t.mu.Lock()
	bucket, ok := t.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(t.refill, t.burst)
		t.buckets[key] = bucket
	}
	t.mu.Unlock()

	now := t.now()
	r := bucket.ReserveN(now, cost)
	if !r.OK() {
		return false, rate.InfDuration
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

var _ Limiter = (*TokenBucket)(nil)
