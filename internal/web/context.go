package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for run logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}

// clientIP returns the caller address without its port.
// RemoteAddr is already processed by TrustedRealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
