package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type window struct {
	count   int
	started time.Time
}

// RateLimiter is a fixed-window limiter keyed by client host. It guards the
// sign-in and AI routes, where every request costs a token mint or a model call.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
	}

	// Cleanup goroutine
	go func() {
		for {
			time.Sleep(period)
			rl.mu.Lock()
			for host, w := range rl.clients {
				if time.Since(w.started) > period {
					delete(rl.clients, host)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// Allow records one request from host and reports whether it is within limit.
func (rl *RateLimiter) Allow(host string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, exists := rl.clients[host]
	if !exists || now.Sub(w.started) > rl.period {
		rl.clients[host] = &window{count: 1, started: now}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientHost(r)) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
