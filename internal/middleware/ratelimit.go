package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/templui/fileshare/internal/iplookup"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewRateLimiter allows burst requests per IP, refilling one every interval.
func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(interval),
		burst:    burst,
		idle:     interval * time.Duration(burst) * 2,
		now:      time.Now,
	}
}

// Allow checks if request from IP should be allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	rl.sweep(now)
	return v.limiter.AllowN(now, 1)
}

// sweep drops buckets that have been idle long enough to be full again
func (rl *RateLimiter) sweep(now time.Time) {
	if len(rl.visitors) < 1024 {
		return
	}
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

// Limit wraps a handler with the limiter
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := iplookup.ClientIP(r)
		if !rl.Allow(ip) {
			slog.Warn("rate limit exceeded",
				"ip", ip,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// RateLimitAuth creates middleware for auth endpoints
// Limits: bursts of 5, one more every 3 minutes per IP
func RateLimitAuth() func(http.HandlerFunc) http.HandlerFunc {
	return NewRateLimiter(3*time.Minute, 5).Limit
}

// RateLimitShares guards the public share endpoints against id enumeration
func RateLimitShares() func(http.HandlerFunc) http.HandlerFunc {
	return NewRateLimiter(time.Second, 30).Limit
}

// RateLimitFunctions caps scheduler endpoints at bursts of 5, one more per minute per IP
func RateLimitFunctions() func(http.HandlerFunc) http.HandlerFunc {
	return NewRateLimiter(time.Minute, 5).Limit
}
