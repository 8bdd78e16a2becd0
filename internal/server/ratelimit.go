package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultLimiterCleanup    = 5 * time.Minute
	defaultLimiterMaxEntries = 10000
)

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*limiterEntry
	rate       rate.Limit
	burst      int
	maxEntries int
	trustProxy bool
	now        func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst per IP. Proxy headers are only consulted when trustProxy is set.
// Idle entries are evicted lazily once the table is full.
func NewRateLimiter(rps float64, burst int, trustProxy bool) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:   make(map[string]*limiterEntry),
		rate:       rate.Limit(rps),
		burst:      burst,
		maxEntries: defaultLimiterMaxEntries,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	now := rl.now()
	entry, ok := rl.limiters[ip]
	if !ok {
		if len(rl.limiters) >= rl.maxEntries {
			rl.evictIdle(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastAccess = now
	rl.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// evictIdle drops entries idle longer than the cleanup interval, or the
// oldest entry if none are. Callers hold rl.mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-defaultLimiterCleanup)
	var oldestIP string
	var oldest time.Time
	for ip, e := range rl.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
			continue
		}
		if oldestIP == "" || e.lastAccess.Before(oldest) {
			oldestIP, oldest = ip, e.lastAccess
		}
	}
	if len(rl.limiters) >= rl.maxEntries && oldestIP != "" {
		delete(rl.limiters, oldestIP)
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.trustProxy)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, ErrorResponse{
				Error:   errCodeRateLimited,
				Message: "rate limit exceeded, please try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller address. X-Forwarded-For and X-Real-IP are
// only honored behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
