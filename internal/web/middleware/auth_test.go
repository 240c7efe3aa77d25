package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ResourceImporter/internal/auth"
	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

func TestRequireImport(t *testing.T) {
	authz, err := auth.NewAuthorizer(auth.Config{
		RequireAuth: true,
		APIKeys:     []string{"ed-key:Editor:erin", "sub-key:Subscriber"},
		ImportRole:  "Editor",
	})
	require.NoError(t, err)

	var seen auth.Principal
	var seenName string
	h := RequireImport(authz)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.FromContext(r.Context())
		seenName = core.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantCode   string
	}{
		{"admitted", "ed-key", http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, "AUTH001"},
		{"unknown", "other", http.StatusUnauthorized, "AUTH003"},
		{"forbidden", "sub-key", http.StatusForbidden, "AUTH002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				assert.Equal(t, "erin", seen.Name)
				assert.Equal(t, "erin", seenName)
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLogger_ReportsAdmittedPrincipal(t *testing.T) {
	var seen auth.Principal
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reportPrincipal(r.Context(), auth.Principal{Name: "alice", Method: auth.MethodAPIKey})
		w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(withPrincipalSink(req.Context(), &seen))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "alice", seen.Name)
}

func TestResponseWriter_CountsBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}
	ww.Write([]byte("hello"))
	ww.Write([]byte(" world"))

	assert.Equal(t, 11, ww.bytes)
	assert.Equal(t, http.StatusOK, ww.status)
}
