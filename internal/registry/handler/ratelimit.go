package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterPool hands out one token bucket per client IP and drops buckets
// that have sat idle longer than ttl.
type limiterPool struct {
	mu      sync.Mutex
	rps     int
	burst   int
	ttl     time.Duration
	buckets map[string]*ipBucket
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(rps, burst int, ttl time.Duration) *limiterPool {
	return &limiterPool{
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
		buckets: make(map[string]*ipBucket),
	}
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (p *limiterPool) evictStale() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ip, b := range p.buckets {
		if time.Since(b.lastSeen) > p.ttl {
			delete(p.buckets, ip)
		}
	}
}

func (p *limiterPool) evictLoop() {
	for {
		time.Sleep(p.ttl / 2)
		p.evictStale()
	}
}

// RateLimiter returns a Gin middleware enforcing per-IP token-bucket rate
// limiting. rps is the steady-state requests per second, burst the bucket
// size, and idleTTL how long an unused client's bucket survives before the
// background eviction pass reclaims it.
func RateLimiter(rps, burst int, idleTTL time.Duration) gin.HandlerFunc {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	pool := newLimiterPool(rps, burst, idleTTL)
	go pool.evictLoop()

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
