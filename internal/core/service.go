package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServiceConfig holds the settings a Service needs.
type ServiceConfig struct {
	Source         string // Path to the import file
	AttachmentsDir string // Directory attachment names resolve against
	MaxFileSize    int64  // Largest accepted import file, in bytes
}

// Service runs whole import batches: parse the source, then import every
// row in file order, one at a time.
type Service struct {
	store    ContentStore
	importer *Importer
	cfg      ServiceConfig

	mu        sync.RWMutex
	observers []Observer
}

// NewService creates a new Service instance.
func NewService(store ContentStore, cfg ServiceConfig) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = MaxFileSize
	}
	return &Service{
		store:    store,
		importer: NewImporter(store, cfg.AttachmentsDir),
		cfg:      cfg,
	}
}

// Source returns the configured import file.
func (s *Service) Source() string {
	return s.cfg.Source
}

// AddObserver registers an observer for row and run events.
func (s *Service) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Preview parses the configured source without writing anything.
func (s *Service) Preview() (*ParseResult, error) {
	return ParseFile(s.cfg.Source, s.cfg.MaxFileSize)
}

// Run imports the configured source.
func (s *Service) Run(ctx context.Context, onProgress ProgressCallback) (*Report, error) {
	return s.RunSource(ctx, s.cfg.Source, onProgress)
}

// RunSource imports every row of source. A *FileError is returned when the
// source cannot be read; the report is returned in every case.
//
// Per-record failures never stop the run. The run is not interrupted once
// rows are being written, so callers that must outlive a request should
// detach ctx from its cancellation.
func (s *Service) RunSource(ctx context.Context, source string, onProgress ProgressCallback) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Source:    source,
		Principal: PrincipalFromContext(ctx),
		StartedAt: time.Now(),
	}
	ctx = ContextWithRunID(ctx, report.RunID)

	logger := slog.Default().With("run_id", report.RunID, "source", source)
	logger.Info("import started", "principal", report.Principal, "ip", GetIPAddressFromContext(ctx))

	progress := ImportProgress{RunID: report.RunID, Phase: PhaseReading}
	notify := func() {
		if onProgress != nil {
			onProgress(progress)
		}
	}
	notify()

	parsed, err := ParseFile(source, s.cfg.MaxFileSize)
	if err != nil {
		logger.Error("import source unreadable", "error", err)
		report.Errors = append(report.Errors, err.Error())
		progress.Phase = PhaseFailed
		notify()
		s.finish(ctx, logger, report)
		return report, err
	}

	report.TotalRows = len(parsed.Rows)
	if report.TotalRows == 0 {
		report.Errors = append(report.Errors, ErrNoResources.Error())
		progress.Phase = PhaseComplete
		notify()
		s.finish(ctx, logger, report)
		return report, nil
	}

	progress.Phase = PhaseImporting
	progress.TotalRows = report.TotalRows
	notify()

	for i, row := range parsed.Rows {
		if row.Width != len(parsed.Headers) {
			logger.Warn("row width does not match header",
				"line", row.Line,
				"cells", row.Width,
				"headers", len(parsed.Headers),
			)
		}

		result := s.importer.Import(ctx, row)
		report.Results = append(report.Results, result)
		if result.Created {
			report.Created++
		}
		if result.HasErrors() {
			report.Errors = append(report.Errors, result.Messages()...)
			logger.Debug("record imported with errors",
				"line", row.Line,
				"record_id", result.RecordID,
				"errors", len(result.Errors),
			)
		}

		for _, o := range s.snapshotObservers() {
			o.RowImported(result)
		}

		progress.CurrentRow = i + 1
		progress.Created = report.Created
		progress.ErrorCount = len(report.Errors)
		notify()
	}

	progress.Phase = PhaseComplete
	notify()
	s.finish(ctx, logger, report)

	return report, nil
}

// finish stamps the report, stores it in run history when the store keeps
// one, and notifies observers.
func (s *Service) finish(ctx context.Context, logger *slog.Logger, report *Report) {
	report.FinishedAt = time.Now()

	if recorder, ok := s.store.(RunRecorder); ok {
		if err := recorder.RecordRun(ctx, report); err != nil {
			logger.Warn("failed to record import run", "error", err)
		}
	}

	for _, o := range s.snapshotObservers() {
		o.RunFinished(report)
	}

	logger.Info("import finished",
		"rows", report.TotalRows,
		"created", report.Created,
		"errors", len(report.Errors),
		"duration_ms", report.Duration().Milliseconds(),
	)
}

func (s *Service) snapshotObservers() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Observer(nil), s.observers...)
}
