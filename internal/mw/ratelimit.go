package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters keeps one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	r       rate.Limit
	b       int
}

func (c *clientLimiters) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.buckets[ip]
	if !ok {
		limiter = rate.NewLimiter(c.r, c.b)
		c.buckets[ip] = limiter
	}
	return limiter
}

// RateLimiter is a middleware limiting each client IP to r requests per
// second with the given burst.
func RateLimiter(r rate.Limit, burst int) gin.HandlerFunc {
	limiters := &clientLimiters{
		buckets: make(map[string]*rate.Limiter),
		r:       r,
		b:       burst,
	}
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
