package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/ResourceImporter/internal/auth"
	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

// RequireImport returns middleware that resolves the caller from X-API-Key or
// a bearer token and admits only principals allowed to run imports.
//
// Missing or unknown credentials get 401. A known principal whose role lacks
// the import capability gets 403. Admitted requests carry the principal in
// their context for handlers and run logging.
func RequireImport(a *auth.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.Resolve(r)
			if err != nil {
				slog.Warn("auth: rejected credentials",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="resource-importer"`)
				deny(w, http.StatusUnauthorized, err)
				return
			}

			if !a.CanRunImport(principal) {
				slog.Warn("auth: principal lacks import capability",
					"path", r.URL.Path,
					"principal", principal.Name,
					"role", principal.Role,
					"required_role", a.ImportRole(),
				)
				deny(w, http.StatusForbidden, auth.ErrForbidden)
				return
			}

			reportPrincipal(r.Context(), principal)
			ctx := auth.WithPrincipal(r.Context(), principal)
			ctx = core.ContextWithPrincipal(ctx, principal.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// deny writes the mapped error as JSON.
func deny(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	msg := core.MapError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   err.Error(),
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
