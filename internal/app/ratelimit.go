package app

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamplane/teamplane/internal/metrics"
)

const (
	defaultRateLimit  = 120
	defaultRateWindow = time.Minute
)

// RateLimiter enforces a sliding-window request cap per client IP. Each
// limiter carries a scope name so rejections are attributable in metrics.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	scope   string
	limit   int
	window  time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window per IP.
func NewRateLimiter(scope string, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{
		clients: make(map[string][]time.Time),
		scope:   scope,
		limit:   limit,
		window:  window,
	}
}

// Allow records a request from the given IP and reports whether it fits the
// window. Entries older than the window are pruned on each call.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	recent := rl.clients[ip][:0]
	for _, t := range rl.clients[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.clients[ip] = recent
		return false
	}

	rl.clients[ip] = append(recent, now)
	return true
}

// Middleware wraps an http.Handler, returning 429 for clients over the limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			metrics.RateLimitedTotal.WithLabelValues(rl.scope).Inc()
			log.Warn().Str("scope", rl.scope).Str("ip", ip).Msg("Rate limit exceeded")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		// Use the first IP in the chain.
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
