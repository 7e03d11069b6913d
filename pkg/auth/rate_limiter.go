package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter limits request rates per key (client IP or user id).
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter implements token bucket rate limiting in memory.
type TokenBucketLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  int
	refillRate time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewTokenBucketLimiter creates a limiter allowing maxTokens requests with
// one token refilled every refillRate.
func NewTokenBucketLimiter(maxTokens int, refillRate time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		stop:       make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// NewIPRateLimiter creates a per-IP limiter with a per-minute budget.
// Non-positive budgets are clamped to one request per minute.
func NewIPRateLimiter(perMinute int) *TokenBucketLimiter {
	perMinute = max(perMinute, 1)
	return NewTokenBucketLimiter(perMinute, time.Minute/time.Duration(perMinute))
}

// NewUserRateLimiter creates a per-user limiter with a per-minute budget.
// Non-positive budgets are clamped to one request per minute.
func NewUserRateLimiter(perMinute int) *TokenBucketLimiter {
	perMinute = max(perMinute, 1)
	return NewTokenBucketLimiter(perMinute, time.Minute/time.Duration(perMinute))
}

// Allow reports whether a request for key may proceed.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.maxTokens, lastRefill: time.Now()}
		l.buckets[key] = b
	}

	now := time.Now()
	refill := int(now.Sub(b.lastRefill) / l.refillRate)
	if refill > 0 {
		b.tokens = min(b.tokens+refill, l.maxTokens)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Reset clears the bucket for a key.
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// Close stops the background cleanup goroutine.
func (l *TokenBucketLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *TokenBucketLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, b := range l.buckets {
				if now.Sub(b.lastRefill) > time.Hour {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
