// Package middleware provides HTTP middleware for the trigger interface.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/ResourceImporter/internal/auth"
	"github.com/JonMunkholm/ResourceImporter/internal/logging"
)

// Logger logs one structured entry per request once the handler returns.
// Server errors log at error level and client errors at warn, so a failed
// import stands out from routine page loads.
//
// Entries carry the chi request ID, and the principal once RequireImport
// has admitted the caller.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		// Inner middleware attaches the principal to a derived request, so
		// it is read back through this pointer after the handler returns.
		var principal auth.Principal
		next.ServeHTTP(ww, r.WithContext(withPrincipalSink(r.Context(), &principal)))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
		}
		if principal.Name != "" {
			attrs = append(attrs, "principal", principal.Name, "auth", string(principal.Method))
		}

		logger := logging.FromContext(r.Context())
		switch {
		case ww.status >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		case ww.status >= http.StatusBadRequest:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap provides access to the underlying ResponseWriter.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type principalSinkKey struct{}

// withPrincipalSink lets RequireImport report the admitted principal back to
// Logger, which wraps it.
func withPrincipalSink(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalSinkKey{}, p)
}

func reportPrincipal(ctx context.Context, p auth.Principal) {
	if sink, ok := ctx.Value(principalSinkKey{}).(*auth.Principal); ok {
		*sink = p
	}
}
