// Package core provides the business logic for CSV resource imports.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

// ContentStore is the narrow set of content-store primitives the importer
// writes through. Implementations commit every call independently.
type ContentStore interface {
	// CreateRecord creates a record from core fields and returns its ID.
	// A zero ID means the store did not assign one.
	CreateRecord(ctx context.Context, fields map[string]string) (int64, error)

	// SetMetadata adds one key/value pair to a record.
	SetMetadata(ctx context.Context, recordID int64, key, value string) error

	// SideloadMedia copies a local file into the media library, attached to
	// the record, and returns the media reference.
	SideloadMedia(ctx context.Context, recordID int64, filePath string) (int64, error)

	// SetPrimaryImage marks mediaID as the record's primary image.
	SetPrimaryImage(ctx context.Context, recordID, mediaID int64) error

	// SetTags replaces the record's terms in taxonomy with tags.
	SetTags(ctx context.Context, recordID int64, tags []string, taxonomy string) error
}

// RunRecorder persists finished run reports. Stores that keep run history
// implement it alongside ContentStore.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *Report) error
}

// RoutedRow is one CSV data row routed into its destination buckets.
type RoutedRow struct {
	Fields     map[string]string // Core record fields
	Metadata   map[string]string // Free-form metadata keys
	Attachment string            // Attachment filename, "" when unset
	Tags       []string          // Tag values in column order

	Line  int // 1-based line number of the row in the source
	Width int // Number of cells the source row carried
}

// Title returns the record title used in error messages.
func (r RoutedRow) Title() string {
	return r.Fields[schema.ColumnTitle]
}

// ParseResult is the output of parsing an import source.
type ParseResult struct {
	Headers []string
	Rows    []RoutedRow
}

// ImportResult is the outcome of importing one RoutedRow.
type ImportResult struct {
	Line     int
	Title    string
	Created  bool
	RecordID int64 // Non-zero only when Created
	Errors   []*RecordError
}

// Messages returns the record's error strings in the order they occurred.
func (r ImportResult) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// HasErrors reports whether any step failed.
func (r ImportResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Report contains the final result of an import run.
type Report struct {
	RunID      string         `json:"runId"`
	Source     string         `json:"source"`
	Principal  string         `json:"principal,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	TotalRows  int            `json:"totalRows"`
	Created    int            `json:"created"`
	Results    []ImportResult `json:"-"`
	Errors     []string       `json:"errors"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed returns the number of rows whose record could not be created.
func (r *Report) Failed() int {
	return r.TotalRows - r.Created
}

// RunSummary is a persisted run as returned by run history.
type RunSummary struct {
	RunID      string    `json:"runId"`
	Source     string    `json:"source"`
	Principal  string    `json:"principal,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	TotalRows  int       `json:"totalRows"`
	Created    int       `json:"created"`
	ErrorCount int       `json:"errorCount"`
}

// ImportPhase indicates the current stage of a run.
type ImportPhase string

const (
	PhaseReading   ImportPhase = "reading"
	PhaseImporting ImportPhase = "importing"
	PhaseComplete  ImportPhase = "complete"
	PhaseFailed    ImportPhase = "failed"
)

// ImportProgress represents the current state of a run.
type ImportProgress struct {
	RunID      string
	Phase      ImportPhase
	TotalRows  int
	CurrentRow int
	Created    int
	ErrorCount int
}

// Percent returns the progress as a percentage (0-100).
func (p ImportProgress) Percent() int {
	if p.TotalRows > 0 {
		return (p.CurrentRow * 100) / p.TotalRows
	}
	return 0
}

// ProgressCallback is called after every row and on phase changes.
type ProgressCallback func(ImportProgress)

// Observer receives run events. The metrics package implements it.
type Observer interface {
	RowImported(result ImportResult)
	RunFinished(report *Report)
}
