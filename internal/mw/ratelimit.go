package mw

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SubmitLimiter keeps a token bucket per client IP for status submissions.
// Buckets idle for longer than idle are dropped on the next sweep.
type SubmitLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	b       int
	idle    time.Duration
	now     func() time.Time
}

// NewSubmitLimiter creates a limiter allowing perSecond events with the given burst.
func NewSubmitLimiter(perSecond float64, burst int) *SubmitLimiter {
	return &SubmitLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(perSecond),
		b:       burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether ip may submit now.
func (l *SubmitLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Sweep removes buckets that have not been used recently.
func (l *SubmitLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	cutoff := l.now().Add(-l.idle)
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps idle buckets every interval until ctx is cancelled.
func (l *SubmitLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Len returns the number of tracked clients.
func (l *SubmitLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit is a middleware rejecting clients that exceed the limiter.
func RateLimit(l *SubmitLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later.",
			})
			return
		}
		c.Next()
	}
}
