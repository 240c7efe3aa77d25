package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ResourceImporter/internal/auth"
	"github.com/JonMunkholm/ResourceImporter/internal/config"
	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/metrics"
	"github.com/JonMunkholm/ResourceImporter/internal/store/memory"
)

const (
	adminKey      = "admin-key"
	subscriberKey = "subscriber-key"
)

type testEnv struct {
	server *Server
	store  *memory.Store
	authz  *auth.Authorizer
	cfg    *config.Config
}

func testConfig(source string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Store:    config.StoreConfig{Driver: config.DriverMemory},
		Import:   config.ImportConfig{Source: source, MaxFileSize: 1 << 20, HistoryLimit: 5},
		Media:    config.MediaConfig{Backend: config.MediaLocal, Dir: "uploads"},
		Security: config.SecurityConfig{RequireAuth: true, ImportRole: "Administrator", EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// newTestEnv serves csv through a memory store. mutate may adjust the
// configuration before the server is built.
func newTestEnv(t *testing.T, csv string, mutate func(*config.Config)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	source := filepath.Join(dir, "import.csv")
	if csv != "" {
		require.NoError(t, os.WriteFile(source, []byte(csv), 0o644))
	}

	cfg := testConfig(source)
	if mutate != nil {
		mutate(cfg)
	}

	authz, err := auth.NewAuthorizer(auth.Config{
		RequireAuth: cfg.Security.RequireAuth,
		APIKeys:     []string{adminKey + ":Administrator:alice", subscriberKey + ":Subscriber:bob"},
		JWTSecret:   "test-secret",
		ImportRole:  cfg.Security.ImportRole,
	})
	require.NoError(t, err)

	collector, err := metrics.NewCollector()
	require.NoError(t, err)

	store := memory.New()
	svc := core.NewService(store, core.ServiceConfig{
		Source:         cfg.Import.Source,
		AttachmentsDir: dir,
		MaxFileSize:    cfg.Import.MaxFileSize,
	})
	svc.AddObserver(collector)

	srv := NewServer(Deps{
		Service:    svc,
		Authorizer: authz,
		History:    store,
		Metrics:    collector,
	}, cfg)
	t.Cleanup(func() { srv.Shutdown(t.Context()) })

	return &testEnv{server: srv, store: store, authz: authz, cfg: cfg}
}

func (e *testEnv) do(method, target, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const sampleCSV = "post_title,post_status,author\n" +
	"First,publish,Ann\n" +
	"Second,draft,Ben\n"

func TestTriggerPage(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)

	rec := env.do(http.MethodGet, "/", adminKey)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Resource Importer")
	assert.Contains(t, rec.Body.String(), "Start Import")
	assert.Contains(t, rec.Body.String(), "Signed in as alice")
	assert.Empty(t, env.store.Records(), "rendering the page must not import")
}

func TestTriggerPage_ImportingRunsImport(t *testing.T) {
	env := newTestEnv(t, "post_title\nLonely\n", nil)

	rec := env.do(http.MethodGet, "/?importing=yes", adminKey)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<pre class="errors">`)
	assert.Contains(t, body, "Created 1 of 1 records")
	assert.Contains(t, body, "no metadata found for record ID=1")
	assert.Len(t, env.store.Records(), 1)
}

func TestImportPage_Post(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)

	rec := env.do(http.MethodPost, "/import", adminKey)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Created 2 of 2 records")
	assert.Len(t, env.store.Records(), 2)
}

func TestImportAPI(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)

	rec := env.do(http.MethodPost, "/api/import", adminKey)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RunID     string   `json:"runId"`
		Principal string   `json:"principal"`
		TotalRows int      `json:"totalRows"`
		Created   int      `json:"created"`
		Failed    int      `json:"failed"`
		Errors    []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RunID)
	assert.Equal(t, "alice", body.Principal)
	assert.Equal(t, 2, body.TotalRows)
	assert.Equal(t, 2, body.Created)
	assert.Zero(t, body.Failed)
	assert.Empty(t, body.Errors)
}

func TestImportAPI_EmptySource(t *testing.T) {
	env := newTestEnv(t, "post_title,author\n", nil)

	rec := env.do(http.MethodPost, "/api/import", adminKey)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), core.ErrNoResources.Error())
	assert.Empty(t, env.store.Records())
}

func TestImportAPI_MissingSource(t *testing.T) {
	env := newTestEnv(t, "", nil)

	rec := env.do(http.MethodPost, "/api/import", adminKey)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "FILE003", decodeError(t, rec)["code"])
}

func TestImportPage_MissingSourceShowsLog(t *testing.T) {
	env := newTestEnv(t, "", nil)

	rec := env.do(http.MethodPost, "/import", adminKey)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such file or directory")
}

func TestImport_AlreadyRunning(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)
	require.True(t, env.server.Guard().TryAcquire("someone-else"))
	defer env.server.Guard().Release()

	rec := env.do(http.MethodPost, "/api/import", adminKey)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RUN001", decodeError(t, rec)["code"])
	assert.Empty(t, env.store.Records())
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantCode   string
	}{
		{"missing credentials", "", http.StatusUnauthorized, "AUTH001"},
		{"unknown key", "nope", http.StatusUnauthorized, "AUTH003"},
		{"role without capability", subscriberKey, http.StatusForbidden, "AUTH002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/import", tt.key)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec)["code"])
		})
	}
	assert.Empty(t, env.store.Records())
}

func TestAuth_BearerToken(t *testing.T) {
	env := newTestEnv(t, sampleCSV, func(c *config.Config) {
		c.Security.ImportRole = "Editor"
	})

	token, err := env.authz.GenerateToken("carol", "Editor")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"principal":"carol"`)
}

func TestAuth_Disabled(t *testing.T) {
	env := newTestEnv(t, sampleCSV, func(c *config.Config) {
		c.Security.RequireAuth = false
	})

	rec := env.do(http.MethodPost, "/api/import", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.store.Records(), 2)
}

func TestListRuns(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/import", adminKey).Code)
	}

	rec := env.do(http.MethodGet, "/api/runs?limit=1", adminKey)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs  []core.RunSummary   `json:"runs"`
		Guard core.RunGuardStatus `json:"guard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, 2, body.Runs[0].Created)
	assert.Equal(t, "alice", body.Runs[0].Principal)
	assert.False(t, body.Guard.Active)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)

	rec := env.do(http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/import", adminKey).Code)

	rec := env.do(http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `resource_importer_import_runs_total{result="ok"} 1`)
	assert.Contains(t, body, `resource_importer_import_rows_total{outcome="created"} 2`)
	assert.Contains(t, body, "resource_importer_http_requests_total")
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, sampleCSV, nil)

	rec := env.do(http.MethodGet, "/healthz", "")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Security-Policy"), "default-src 'self'"))
}

func TestRateLimit_ImportRoutes(t *testing.T) {
	env := newTestEnv(t, sampleCSV, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ImportLimit: 1}
	})

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/import", adminKey).Code)

	rec := env.do(http.MethodPost, "/api/import", adminKey)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other routes keep the general limit
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/", adminKey).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(core.ErrImportRunning))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&core.FileError{Path: "x.csv", Err: os.ErrNotExist}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
