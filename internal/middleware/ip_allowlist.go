package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// IPAllowList restricts inbound requests to the bank network's known source
// addresses. An empty allow-list permits everything; startup logs a warning
// for that configuration.
type IPAllowList struct {
	allowed map[string]bool
	logger  *zap.Logger
}

// NewIPAllowList creates the allow-list from configured addresses.
func NewIPAllowList(ips []string, logger *zap.Logger) *IPAllowList {
	allowed := make(map[string]bool, len(ips))
	for _, ip := range ips {
		allowed[strings.TrimSpace(ip)] = true
	}
	if len(allowed) == 0 {
		logger.Warn("IP allow-list empty, all source addresses accepted")
	} else {
		logger.Info("IP allow-list loaded", zap.Int("count", len(allowed)))
	}
	return &IPAllowList{allowed: allowed, logger: logger}
}

// Middleware wraps an HTTP handler with source-address filtering.
func (a *IPAllowList) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r)
		if !a.isAllowed(clientIP) {
			a.logger.Warn("request from unauthorized IP",
				zap.String("ip", clientIP),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{
				"detail": "IP no autorizada",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowed checks the cached allow-list. Once a list is configured only the
// listed addresses pass; localhost gets no exemption.
func (a *IPAllowList) isAllowed(ip string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	return a.allowed[ip]
}

// ClientIP extracts the client IP from the request, honoring proxy headers.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return host
}
