package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestCollectorRecordsHTTPMetrics(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(c.InstrumentHandler)
	r.Get("/api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil))

	body := scrape(t, c)
	assert.Contains(t, body, `resource_importer_http_requests_total{method="GET",path="/api/runs/{id}",status="202"} 1`)
	assert.Contains(t, body, `resource_importer_http_request_duration_seconds_count{method="GET",path="/api/runs/{id}",status="202"} 1`)
}

func TestCollectorObservesImports(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	c.RowImported(core.ImportResult{Created: true})
	c.RowImported(core.ImportResult{
		Created: true,
		Errors:  []*core.RecordError{{Kind: core.KindTag}, {Kind: core.KindMetadata}},
	})
	c.RowImported(core.ImportResult{Errors: []*core.RecordError{{Kind: core.KindRecordCreation}}})

	start := time.Now()
	c.RunFinished(&core.Report{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		TotalRows:  3,
		Created:    2,
		Errors:     []string{"x", "y", "z"},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rowsTotal.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rowsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.recordErrors.WithLabelValues(string(core.KindTag))))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.recordErrors.WithLabelValues(string(core.KindAttachmentStore))))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("with_errors")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.lastRunCreated))

	body := scrape(t, c)
	assert.True(t, strings.Contains(body, "resource_importer_import_run_duration_seconds_count 1"))
}

func TestRunResultLabels(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	c.RunFinished(&core.Report{TotalRows: 1, Created: 1})
	c.RunFinished(&core.Report{Errors: []string{core.ErrNoResources.Error()}})
	c.RunFinished(&core.Report{Errors: []string{(&core.FileError{Path: "x.csv", Err: errors.New("boom")}).Error()}})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("failed")))
}
