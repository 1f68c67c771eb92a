package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from request headers.
// It checks, in order:
//  1. X-Forwarded-For (first entry of the comma-separated list)
//  2. X-Real-IP
//  3. RemoteAddr, with the port stripped
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
