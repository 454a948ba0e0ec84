// Package middleware holds transport-level middleware shared by the gateway's
// HTTP servers.
package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ipLimiter pairs a token bucket with its last access time for eviction.
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a per-source token bucket. Entries are evicted after
// five minutes of inactivity; the cache is capped so a spoofed-source flood
// cannot grow it without bound.
type RateLimiter struct {
	limiters map[string]*ipLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	maxSize  int
	interval time.Duration
	stopCh   chan struct{}
	logger   *zap.Logger
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained with
// the given burst, per source address.
func NewRateLimiter(requestsPerSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		maxSize:  10000,
		interval: 5 * time.Minute,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.interval)
	removed := 0
	for ip, l := range rl.limiters {
		if l.lastAccess.Before(cutoff) {
			delete(rl.limiters, ip)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("rate limiter cache cleaned",
			zap.Int("removed", removed),
			zap.Int("remaining", len(rl.limiters)))
	}
}

// Shutdown stops the cleanup goroutine.
func (rl *RateLimiter) Shutdown() {
	close(rl.stopCh)
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[ip]; ok {
		l.lastAccess = time.Now()
		return l.limiter
	}

	if len(rl.limiters) >= rl.maxSize {
		rl.evictOldestLocked()
	}

	l := &ipLimiter{
		limiter:    rate.NewLimiter(rl.rate, rl.burst),
		lastAccess: time.Now(),
	}
	rl.limiters[ip] = l
	return l.limiter
}

func (rl *RateLimiter) evictOldestLocked() {
	var oldestIP string
	var oldestTime time.Time
	first := true
	for ip, l := range rl.limiters {
		if first || l.lastAccess.Before(oldestTime) {
			oldestIP = ip
			oldestTime = l.lastAccess
			first = false
		}
	}
	if oldestIP != "" {
		delete(rl.limiters, oldestIP)
	}
}

// Middleware wraps a handler with per-source rate limiting.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := sourceAddr(r)
		if !rl.getLimiter(ip).Allow() {
			rl.logger.Warn("rate limit exceeded", zap.String("source", ip))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sourceAddr keys the bucket by the connecting address, preferring the first
// forwarded hop when the gateway sits behind a proxy.
func sourceAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
