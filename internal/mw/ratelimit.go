package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters hands out one token bucket per client key. The grid UI polls
// the permit endpoints, so buckets are keyed per client rather than globally
// to keep one aggressive poller from starving everyone else.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newClientLimiters(perSec float64, burst int) *clientLimiters {
	return &clientLimiters{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSec),
		burst:   burst,
	}
}

func (l *clientLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	return bucket
}

// RateLimiter limits each client to perSec requests with the given burst.
// When ipHeader is set (a deployment behind a trusting reverse proxy), the
// client key is read from that header; otherwise the connection's IP is used.
func RateLimiter(perSec float64, burst int, ipHeader string) gin.HandlerFunc {
	limiters := newClientLimiters(perSec, burst)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if ipHeader != "" {
			if ip := c.GetHeader(ipHeader); ip != "" {
				key = ip
			}
		}

		if !limiters.get(key).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
