package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitMiddleware caps requests per caller in a sliding window. Callers are
// keyed by actor when one is present, else by client IP.
type RateLimitMiddleware struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	now      func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// RateLimit rejects a caller's request once maxRequests were seen within window.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r)
			now := m.now()
			windowStart := now.Add(-window)

			m.mu.Lock()
			kept := m.requests[key][:0]
			for _, ts := range m.requests[key] {
				if ts.After(windowStart) {
					kept = append(kept, ts)
				}
			}
			if len(kept) >= maxRequests {
				m.requests[key] = kept
				m.mu.Unlock()
				w.Header().Set("Retry-After", retryAfter(kept[0].Add(window).Sub(now)))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			m.requests[key] = append(kept, now)
			m.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(d time.Duration) string {
	secs := int(d.Seconds())
	if d > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func callerKey(r *http.Request) string {
	if actor, ok := r.Context().Value(ActorContextKey).(string); ok && actor != "" {
		return "actor:" + actor
	}
	return "ip:" + getClientIP(r)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
