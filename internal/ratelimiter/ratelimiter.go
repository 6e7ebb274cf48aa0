// Package ratelimiter provides keyed request rate limiting using the token
// bucket algorithm.
package ratelimiter

import (
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// KeyedLimiter rate-limits requests independently per key, typically a
// client IP. It wraps golang.org/x/time/rate with one token bucket per key:
//
//  1. Tokens are added to a key's bucket at a constant rate
//  2. Each request consumes one token from the key's bucket
//  3. An empty bucket rejects the request
//  4. Burst capacity allows temporary spikes above the sustained rate
//
// The primary use is throttling login attempts so one client cannot
// brute-force passwords while others log in normally.
//
// Thread safety:
// All methods are safe for concurrent use.
type KeyedLimiter struct {
	limiters *xsync.Map[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// New creates a KeyedLimiter with the specified sustained rate and burst
// capacity per key.
//
// Special cases:
//   - requestsPerSecond <= 0: no rate limiting, Allow always returns true
//
// Buckets are created lazily on a key's first request and retained for the
// limiter's lifetime. For per-IP login throttling the key space is small
// enough that no eviction is needed.
func New(requestsPerSecond float64, burst int) *KeyedLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return &KeyedLimiter{
		limiters: xsync.NewMap[string, *rate.Limiter](),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether the request for key may proceed now. A nil limiter
// allows everything.
func (l *KeyedLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	limiter, ok := l.limiters.Load(key)
	if !ok {
		limiter, _ = l.limiters.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	}
	return limiter.Allow()
}
