package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ignite/newsletter-backend/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles the public subscribe/unsubscribe endpoints with a
// fixed-window counter per client IP, shared across instances via Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window per IP.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Middleware returns the chi middleware. When Redis is down the limiter fails
// open: throttling protects capacity, it must not take the signup flow down
// with it.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:%s", clientIP(r))

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}
		if count > int64(rl.limit) {
			respondError(w, http.StatusTooManyRequests, "Too many requests, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP trusts RemoteAddr, which the RealIP middleware has already
// rewritten from X-Forwarded-For when running behind the load balancer.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
