package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/models"
)

// callerTable hands out one token bucket per caller and evicts buckets that
// have been idle long enough that refilling made them full again anyway.
type callerTable struct {
	mu      sync.Mutex
	buckets map[string]*callerBucket
	rps     float64
	burst   int
}

type callerBucket struct {
	bucket *rate.Limiter
	seen   time.Time
}

const callerIdleEviction = time.Hour

func (t *callerTable) take(identity string) bool {
	t.mu.Lock()
	b, ok := t.buckets[identity]
	if !ok {
		b = &callerBucket{bucket: rate.NewLimiter(rate.Limit(t.rps), t.burst)}
		t.buckets[identity] = b
	}
	b.seen = time.Now()
	t.mu.Unlock()
	return b.bucket.Allow()
}

func (t *callerTable) evictIdle() {
	cutoff := time.Now().Add(-callerIdleEviction)
	t.mu.Lock()
	for id, b := range t.buckets {
		if b.seen.Before(cutoff) {
			delete(t.buckets, id)
		}
	}
	t.mu.Unlock()
}

// identity names the caller for rate-limiting purposes. Authenticated
// callers are tracked by API key, anonymous ones by client IP. The prefixes
// keep the two namespaces apart so an IP string can never collide with a
// key string.
func identity(c *gin.Context) string {
	if key, ok := c.Get("api_key"); ok {
		return "key:" + key.(string)
	}
	return "ip:" + c.ClientIP()
}

// RateLimit returns per-caller token-bucket rate limiting middleware powered
// by golang.org/x/time/rate. A background goroutine evicts idle buckets
// every 5 minutes so the table cannot grow without bound.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	table := &callerTable{
		buckets: make(map[string]*callerBucket),
		rps:     cfg.RequestsPerSecond,
		burst:   cfg.Burst,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			table.evictIdle()
		}
	}()

	return func(c *gin.Context) {
		if !table.take(identity(c)) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}
