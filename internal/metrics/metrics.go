// Package metrics exposes Prometheus metrics for the trigger interface and
// for import runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

const namespace = "resource_importer"

// Collector owns the registry and every metric the importer exports.
type Collector struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	rowsTotal      *prometheus.CounterVec
	recordErrors   *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRunCreated prometheus.Gauge
	lastRunTime    prometheus.Gauge
}

var _ core.Observer = (*Collector)(nil)

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),

		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Data rows processed, by whether the record was created.",
		}, []string{"outcome"}),

		recordErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "record_errors_total",
			Help:      "Per-record import errors by kind.",
		}, []string{"kind"}),

		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Finished import runs by result.",
		}, []string{"result"}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "run_duration_seconds",
			Help:      "Wall time of import runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		lastRunCreated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "last_run_created_records",
			Help:      "Records created by the most recent run.",
		}),

		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time the most recent run finished.",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.requestDuration, c.requestTotal,
		c.rowsTotal, c.recordErrors, c.runsTotal, c.runDuration,
		c.lastRunCreated, c.lastRunTime,
	} {
		if err := c.registry.Register(m); err != nil {
			return nil, err
		}
	}

	// Pre-create label sets so dashboards see zeros before the first run.
	for _, kind := range core.Kinds {
		c.recordErrors.WithLabelValues(string(kind))
	}
	c.rowsTotal.WithLabelValues("created")
	c.rowsTotal.WithLabelValues("failed")

	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
// The path label is the chi route pattern when one matched.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// RowImported implements core.Observer.
func (c *Collector) RowImported(result core.ImportResult) {
	if result.Created {
		c.rowsTotal.WithLabelValues("created").Inc()
	} else {
		c.rowsTotal.WithLabelValues("failed").Inc()
	}
	for _, e := range result.Errors {
		c.recordErrors.WithLabelValues(string(e.Kind)).Inc()
	}
}

// RunFinished implements core.Observer.
func (c *Collector) RunFinished(report *core.Report) {
	result := "ok"
	switch {
	case report.TotalRows == 0 && len(report.Errors) == 1 && report.Errors[0] == core.ErrNoResources.Error():
		result = "empty"
	case report.TotalRows == 0:
		result = "failed"
	case len(report.Errors) > 0:
		result = "with_errors"
	}

	c.runsTotal.WithLabelValues(result).Inc()
	c.runDuration.Observe(report.Duration().Seconds())
	c.lastRunCreated.Set(float64(report.Created))
	c.lastRunTime.Set(float64(report.FinishedAt.Unix()))
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
