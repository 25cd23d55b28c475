package http

import (
	"sync"
	"time"
)

type bucket struct {
	tokens   float64
	refilled time.Time
	seen     time.Time
}

// RateLimiter is a token bucket limiter keyed by client address. Idle buckets
// are evicted after the client TTL.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   float64
	rate    float64
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows burst requests at once and refills rate tokens per second.
func NewRateLimiter(burst int, rate float64, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		burst:   float64(burst),
		rate:    rate,
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if ttl > 0 {
		go rl.evictLoop()
	}

	return rl
}

// Allow takes one token from the bucket of key and reports whether one was available.
func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, refilled: now}
		rl.buckets[key] = b
	}
	b.seen = now

	if elapsed := now.Sub(b.refilled).Seconds(); elapsed > 0 {
		b.tokens = min(rl.burst, b.tokens+elapsed*rl.rate)
		b.refilled = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Clients returns the number of tracked buckets.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Stop ends the eviction goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if now.Sub(b.seen) > rl.ttl {
			delete(rl.buckets, key)
		}
	}
}
