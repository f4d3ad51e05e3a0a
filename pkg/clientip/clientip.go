// Package clientip resolves the originating client address of a request.
// Rate limit keys are derived from it, so proxy headers are consulted before
// RemoteAddr.
package clientip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client IP, preferring proxy-set headers:
// X-Forwarded-For (first valid entry), then X-Real-IP, then RemoteAddr.
// The result is a normalized IP string, or "" if nothing parses.
func FromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, part := range strings.Split(forwarded, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in tests.
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

type contextKey struct{}

// WithIP stores the client IP in the context.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the client IP placed by Middleware, or "".
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Middleware resolves the client IP once per request and stores it in the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithIP(r.Context(), FromRequest(r))))
	})
}
