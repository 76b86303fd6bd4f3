// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per requester (or client IP when no requester id is present). Buckets live
// in a go-cache with a sliding idle TTL, so inactive identities are evicted
// by the cache janitor instead of by a hand-written sweep.
//
// The limiter is process-local edge protection against command spam; it is
// not the claim cooldown, which is enforced by the cooldown store.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	defaultBucketTTL   = 10 * time.Minute
	defaultJanitorTick = time.Minute
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP prefers the requester id stored by Identity and falls back to
// the client IP. Keys are prefixed ("user:", "ip:") so namespaces never collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if s := c.GetString(CtxUserID); s != "" {
			return "user:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimiter implements a per-key token-bucket rate limiter. It is safe for
// concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	ttl     time.Duration
	buckets *gocache.Cache

	// mu serializes bucket creation so two first requests share one limiter.
	mu sync.Mutex
}

// NewRateLimiter constructs a RateLimiter. burst <= 0 is coerced to 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		ttl:     defaultBucketTTL,
		buckets: gocache.New(defaultBucketTTL, defaultJanitorTick),
	}
}

// limiter returns the bucket for key, creating it on first use. Every lookup
// refreshes the entry's TTL.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		rl.buckets.Set(key, lim, rl.ttl)
		return lim
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.buckets.Get(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets.Set(key, lim, rl.ttl)
	return lim
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int { return rl.buckets.ItemCount() }

// Handler returns a Gin middleware enforcing the per-key limit. Rejected
// requests get 429, Retry-After: 1 and the standard error envelope with code
// "rate_limited".
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
