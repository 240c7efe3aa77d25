package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/logging"
	"github.com/JonMunkholm/ResourceImporter/internal/web/templates"
)

// ErrorResponse is the JSON body of every failed API call. Code is stable
// and documented in core/error_messages.go; Error is safe to show.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	RunID   string `json:"runId,omitempty"`
}

// respondError logs err with the request's run fields and answers with the
// mapped message, as JSON for API callers and as the error page otherwise.
// The technical error never reaches the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context()).With(
		"status", status,
		"code", msg.Code,
		"error", err,
	)
	if status >= http.StatusInternalServerError {
		logger.Error("import request failed")
	} else {
		logger.Warn("import request rejected")
	}

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		RunID:   core.RunIDFromContext(r.Context()),
	})
}

// wantsJSON reports whether the caller is an API client: anything under
// /api/, or a request that asks for or sends JSON.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	for _, h := range []string{"Accept", "Content-Type"} {
		if strings.Contains(r.Header.Get(h), "application/json") {
			return true
		}
	}
	return false
}

// writeError writes a JSON error for failures that have no error value,
// such as an unsupported feature. Unmapped messages fall back to the status
// text.
func writeError(w http.ResponseWriter, status int, message string) {
	msg := core.MapMessage(message)
	if msg.Code == "ERR000" {
		msg.Message = http.StatusText(status)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v as JSON. Encoding errors are only logged since the
// status line is already written.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
