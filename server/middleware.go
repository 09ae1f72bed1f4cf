package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/xhad/bloodhound/internal/models"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns per-client-IP token-bucket rate limiting middleware.
// Entries unused for an hour are evicted lazily on the next request.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup = time.Now()
	)

	getLimiter := func(identity string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastCleanup) > 5*time.Minute {
			cutoff := now.Add(-time.Hour)
			for id, entry := range limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(limiters, id)
				}
			}
			lastCleanup = now
		}

		entry, ok := limiters[identity]
		if !ok {
			entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[identity] = entry
		}
		entry.lastSeen = now
		return entry.limiter
	}

	return func(c *gin.Context) {
		if !getLimiter(c.ClientIP()).Allow() {
			respondError(c, models.NewCrawlError(models.ErrCodeRateLimited, "rate limit exceeded, please slow down", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(l *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
