package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/ResourceImporter/internal/auth"
	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/logging"
	"github.com/JonMunkholm/ResourceImporter/internal/web/templates"
)

// importResponse is the JSON body of POST /api/import.
type importResponse struct {
	*core.Report
	Failed     int   `json:"failed"`
	DurationMS int64 `json:"durationMs"`
}

// handleTrigger renders the trigger page. With ?importing=yes it runs the
// import and renders the result instead.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("importing") == "yes" {
		s.handleImportPage(w, r)
		return
	}

	principal, _ := auth.FromContext(r.Context())
	data := templates.TriggerData{
		Source:     s.service.Source(),
		ImportRole: s.authz.ImportRole(),
		StartURL:   "/?importing=yes",
	}
	if principal.Authenticated() {
		data.Principal = principal.Name
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.TriggerPage(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render trigger page", "error", err)
	}
}

// handleImportPage runs the import and renders the result page with the
// error log.
func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	report, err := s.runImport(r)
	if report == nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := templates.ResultData{
		RunID:     report.RunID,
		Source:    report.Source,
		TotalRows: report.TotalRows,
		Created:   report.Created,
		Duration:  report.Duration().Round(time.Millisecond).String(),
		Errors:    report.Errors,
	}
	if err := templates.ResultPage(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render result page", "error", err)
	}
}

// handleImportAPI runs the import and returns the report as JSON.
func (s *Server) handleImportAPI(w http.ResponseWriter, r *http.Request) {
	report, err := s.runImport(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Report:     report,
		Failed:     report.Failed(),
		DurationMS: report.Duration().Milliseconds(),
	})
}

// handleListRuns returns recent run history.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "run history is not available for this store")
		return
	}

	limit := parseIntParam(r, "limit", s.cfg.Import.HistoryLimit)
	if limit > s.cfg.Import.HistoryLimit {
		limit = s.cfg.Import.HistoryLimit
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.RunSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"guard": s.guard.Status(),
	})
}

// handleHealth reports liveness and, when configured, store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"importing": s.guard.Active(),
	})
}

// runImport holds the guard for one run. The run is detached from the
// request so a dropped client does not abort it midway.
func (s *Server) runImport(r *http.Request) (*core.Report, error) {
	principal, _ := auth.FromContext(r.Context())

	if err := s.guard.Acquire(r.Context(), principal.Name); err != nil {
		return nil, err
	}
	defer s.guard.Release()

	ctx := context.WithoutCancel(r.Context())
	ctx = WithRequestMetadata(ctx, r)
	ctx = core.ContextWithPrincipal(ctx, principal.Name)

	return s.service.Run(ctx, nil)
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	var fileErr *core.FileError
	switch {
	case errors.Is(err, core.ErrImportRunning):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &fileErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
