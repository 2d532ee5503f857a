package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdle  = 30 * time.Minute
	limiterSweep = 5 * time.Minute
)

type ipLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle buckets are dropped
// lazily on the request path.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		limiters:  make(map[string]*ipLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *RateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterSweep {
		for k, v := range l.limiters {
			if now.Sub(v.last) > limiterIdle {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	il, ok := l.limiters[ip]
	if !ok {
		il = &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = il
	}
	il.last = now
	return il.limiter.AllowN(now, 1)
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
