package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// Limiter strategies accepted by NewLimiter
const (
	StrategyFixedWindow   = "fixed_window"
	StrategySlidingWindow = "sliding_window"
)

// Drainer is a limiter that can be held closed until an upstream window resets
type Drainer interface {
	Drain(resetAt time.Time)
}

// NewLimiter builds a limiter allowing n requests per window. Unknown
// strategies get the fixed window.
func NewLimiter(strategy string, n int, window time.Duration) Limiter {
	if strategy == StrategySlidingWindow {
		return NewSlidingWindow(n, window)
	}
	return NewTokenBucket(n, window)
}

// TokenBucket implements a fixed-window token bucket, which matches how
// Twitter accounts requests per 15 minute window.
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if timeUntilRefill <= 0 {
			timeUntilRefill = 100 * time.Millisecond
		}
		if err := sleep(ctx, timeUntilRefill); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// Drain empties the bucket until the upstream window closes at resetAt.
// A zero or past resetAt leaves the bucket untouched.
func (tb *TokenBucket) Drain(resetAt time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if resetAt.IsZero() || !resetAt.After(time.Now()) {
		return
	}
	tb.tokens = 0
	tb.lastRefill = resetAt.Add(-tb.refillPeriod)
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	if elapsed >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		timeToWait := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			if d := sw.windowSize - time.Since(sw.requests[0]); d > 0 {
				timeToWait = d
			}
		}
		sw.mu.Unlock()

		if err := sleep(ctx, timeToWait); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// Drain fills the window so the next request is allowed at resetAt.
// A zero or past resetAt leaves the window untouched.
func (sw *SlidingWindow) Drain(resetAt time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if resetAt.IsZero() || !resetAt.After(time.Now()) {
		return
	}
	stamp := resetAt.Add(-sw.windowSize)
	sw.requests = sw.requests[:0]
	for i := 0; i < sw.maxRequests; i++ {
		sw.requests = append(sw.requests, stamp)
	}
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// Endpoints holds one limiter per API endpoint. Endpoints without a
// registered limiter are not limited.
type Endpoints struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
}

// NewEndpoints creates an empty per-endpoint registry
func NewEndpoints() *Endpoints {
	return &Endpoints{limiters: make(map[string]Limiter)}
}

// Set registers the limiter for endpoint
func (e *Endpoints) Set(endpoint string, l Limiter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limiters[endpoint] = l
}

// Get returns the limiter for endpoint, if any
func (e *Endpoints) Get(endpoint string) (Limiter, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.limiters[endpoint]
	return l, ok
}

// Wait blocks on the endpoint's limiter
func (e *Endpoints) Wait(ctx context.Context, endpoint string) error {
	l, ok := e.Get(endpoint)
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}

// Drain holds the endpoint's limiter closed until resetAt
func (e *Endpoints) Drain(endpoint string, resetAt time.Time) {
	l, ok := e.Get(endpoint)
	if !ok {
		return
	}
	if d, ok := l.(Drainer); ok {
		d.Drain(resetAt)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
