package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// DefaultRateLimitConfig matches the daemon's defaults. Lab operations are
// chatty (polling status, streaming captures) so the limits sit well above
// interactive use.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		Burst:             100,
	}
}

// staleAfter is how long an idle client's limiter survives before eviction.
const staleAfter = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit builds a per-IP token bucket middleware. Idle buckets are
// evicted opportunistically on the lock that creates new ones, so no
// background goroutine is needed.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		cfg = DefaultRateLimitConfig()
	}

	var (
		mu        sync.Mutex
		byIP      = make(map[string]*ipLimiter)
		lastSweep time.Time
	)

	return func(c *gin.Context) {
		now := time.Now()

		mu.Lock()
		entry, ok := byIP[c.ClientIP()]
		if !ok {
			entry = &ipLimiter{
				limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
			}
			byIP[c.ClientIP()] = entry
			if now.Sub(lastSweep) > staleAfter {
				for ip, e := range byIP {
					if now.Sub(e.lastSeen) > staleAfter {
						delete(byIP, ip)
					}
				}
				lastSweep = now
			}
		}
		entry.lastSeen = now
		limiter := entry.limiter
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
