package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thptprep/engprep-backend/internal/response"
)

// RateLimiter is a fixed-window per-IP limiter. It guards the login
// endpoint and the AI-backed routes, where every request costs an
// upstream call.
type RateLimiter struct {
	mu     sync.Mutex
	counts map[string]*window
	limit  int
	per    time.Duration
}

type window struct {
	n     int
	reset time.Time
}

// NewRateLimiter allows limit requests per interval per client IP.
func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	rl := &RateLimiter{
		counts: make(map[string]*window),
		limit:  limit,
		per:    per,
	}
	go func() {
		for range time.Tick(time.Minute) {
			rl.sweep()
		}
	}()
	return rl
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rl.mu.Lock()
		w, ok := rl.counts[ip]
		if !ok || now.After(w.reset) {
			w = &window{reset: now.Add(rl.per)}
			rl.counts[ip] = w
		}
		w.n++
		over := w.n > rl.limit
		rl.mu.Unlock()

		if over {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for ip, w := range rl.counts {
		if now.After(w.reset) {
			delete(rl.counts, ip)
		}
	}
}
