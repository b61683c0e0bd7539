// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the in-memory token-bucket rate limiter. The router
// wires named instances: "global" per IP, "send_code" per IP in front of the
// SMS endpoint (every message is billed), "auth" per IP on the password
// routes, and "payment" per user on order creation, which idempotent replays
// skip.
//
// Limits are process-local. They throttle abuse; they do not authorize.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL  = 10 * time.Minute
	sweepEveryHits = 5000
)

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected with 429, by limiter.",
	},
	[]string{"limiter"},
)

func init() {
	prometheus.MustRegister(rateLimited)
}

// KeyFunc maps a request to the identity whose bucket it draws from.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys on the authenticated user when RequireUser ran earlier
// in the chain, else on the client IP. Keys are namespaced ("user:", "ip:").
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetString(userIDKey); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP keys on the client address only, for unauthenticated routes where a
// caller could otherwise rotate identities.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter hands out one token bucket per key. Buckets idle for longer
// than idleTTL are dropped during a sweep every sweepEveryHits lookups.
// Safe for concurrent use.
type RateLimiter struct {
	name  string
	every rate.Limit
	burst int
	key   KeyFunc

	// Skip, when set, exempts matching requests from the limit.
	Skip func(*gin.Context) bool

	mu      sync.Mutex
	buckets map[string]*bucket
	hits    int
	idleTTL time.Duration
}

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst (coerced to at least 1). name labels the rejection metric.
func NewRateLimiter(name string, rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		name:    name,
		every:   rate.Limit(rps),
		burst:   max(burst, 1),
		key:     key,
		buckets: make(map[string]*bucket),
		idleTTL: bucketIdleTTL,
	}
}

// bucketFor returns the limiter for key, creating it on first use. The sweep
// runs before the lookup so a stale bucket is replaced rather than revived.
func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.hits++; rl.hits >= sweepEveryHits {
		rl.sweep(now)
		rl.hits = 0
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.every, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// sweep drops idle buckets. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, b := range rl.buckets {
		if now.Sub(b.seen) >= rl.idleTTL {
			delete(rl.buckets, k)
		}
	}
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay, which limiters let through without spending a token.
func IsRateBypass(c *gin.Context) bool {
	bypass, _ := c.Value(ctxKeyRateBypass).(bool)
	return bypass
}

// Handler enforces the limit. Rejections get 429, a Retry-After header and
// the standard error envelope with code "rate_limited".
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || (rl.Skip != nil && rl.Skip(c)) || rl.bucketFor(rl.key(c)).Allow() {
			c.Next()
			return
		}
		rateLimited.WithLabelValues(rl.name).Inc()
		c.Header("Retry-After", strconv.Itoa(rl.retryAfter()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(c, "rate_limited", "rate limit exceeded"))
	}
}

// retryAfter is the number of whole seconds until one token refills, at
// least 1. A zero rate never refills; clients are told to wait a minute.
func (rl *RateLimiter) retryAfter() int {
	if rl.every <= 0 {
		return 60
	}
	return max(int(math.Ceil(1/float64(rl.every))), 1)
}
