package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window in-memory limiter. Platforms redeliver
// aggressively on non-2xx responses, so the limit should be sized well
// above each platform's burst rate; the limiter exists to contain runaway
// senders, not to shape normal traffic.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int           // requests allowed per window
	window  time.Duration // window length
	stop    chan struct{}
}

type client struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a rate limiter allowing limit requests per window
// and starts its background cleanup. Call Stop to release the cleanup
// goroutine; in the server it runs for the process lifetime.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop terminates the background cleanup goroutine. The limiter itself
// remains usable.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

// cleanupLoop drops keys idle for more than two windows so one-off senders
// do not accumulate in memory.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, c := range rl.clients {
		if now.Sub(c.lastReset) > rl.window*2 {
			delete(rl.clients, key)
		}
	}
}

// Allow reports whether a request for the key fits in the current window
// and consumes a token if it does.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	c, ok := rl.clients[key]
	if !ok || now.Sub(c.lastReset) >= rl.window {
		rl.clients[key] = &client{tokens: rl.limit - 1, lastReset: now}
		return true
	}

	if c.tokens == 0 {
		return false
	}
	c.tokens--
	return true
}

// Remaining returns how many requests the key has left in its window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok || time.Since(c.lastReset) >= rl.window {
		return rl.limit
	}
	return c.tokens
}

func rejectRateLimited(c *gin.Context, window time.Duration) {
	// Retry-After tells well-behaved platforms when redelivery can succeed.
	c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
	status := dto.ErrorCodeHTTPStatus[dto.ErrCodeRateLimited]
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(dto.ErrCodeRateLimited, "Too many requests. Please try again later."))
}

// RateLimit limits by client IP, scoped per provider on webhook routes so
// one platform flooding cannot starve the others.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if provider := c.Param("provider"); provider != "" {
			key = provider + ":" + key
		}

		if !limiter.Allow(key) {
			rejectRateLimited(c, limiter.window)
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(key)))

		c.Next()
	}
}

// RateLimitByKey limits using a caller-supplied key extractor, for routes
// where the IP is not the right unit (e.g. per integration ID).
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(keyFunc(c)) {
			rejectRateLimited(c, limiter.window)
			return
		}

		c.Next()
	}
}
