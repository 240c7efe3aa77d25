// Package memory is an in-process content store. The CLI uses it for dry
// runs; it keeps every record, metadata pair, media reference and tag so a
// run can be inspected afterwards.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

// ErrRecordNotFound is returned for operations on an unknown record.
var ErrRecordNotFound = errors.New("record not found")

// Record is one stored record.
type Record struct {
	ID       int64
	RunID    string
	Fields   map[string]string
	Metadata []MetaEntry
	Terms    map[string][]string // taxonomy -> names
	Media    []int64
	Created  time.Time
}

// MetaEntry is one metadata pair, in insertion order.
type MetaEntry struct {
	Key   string
	Value string
}

// Meta returns the last value stored under key.
func (r *Record) Meta(key string) (string, bool) {
	for i := len(r.Metadata) - 1; i >= 0; i-- {
		if r.Metadata[i].Key == key {
			return r.Metadata[i].Value, true
		}
	}
	return "", false
}

// Store is a concurrency-safe in-memory content store.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]*Record
	media   map[int64]string // media ID -> source path
	runs    []*core.Report
}

var (
	_ core.ContentStore = (*Store)(nil)
	_ core.RunRecorder  = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[int64]*Record),
		media:   make(map[int64]string),
	}
}

func (s *Store) CreateRecord(ctx context.Context, fields map[string]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw := fields[schema.ColumnID]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not an integer", schema.ColumnID, raw)
		}
		rec, ok := s.records[id]
		if !ok {
			return 0, nil
		}
		for k, v := range fields {
			if k != schema.ColumnID {
				rec.Fields[k] = v
			}
		}
		return id, nil
	}

	s.nextID++
	rec := &Record{
		ID:      s.nextID,
		RunID:   core.RunIDFromContext(ctx),
		Fields:  make(map[string]string, len(fields)),
		Terms:   make(map[string][]string),
		Created: time.Now(),
	}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	s.records[rec.ID] = rec
	return rec.ID, nil
}

func (s *Store) SetMetadata(_ context.Context, recordID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordID]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Metadata = append(rec.Metadata, MetaEntry{Key: key, Value: value})
	return nil
}

func (s *Store) SideloadMedia(_ context.Context, recordID int64, filePath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordID]
	if !ok {
		return 0, ErrRecordNotFound
	}
	s.nextID++
	s.media[s.nextID] = filePath
	rec.Media = append(rec.Media, s.nextID)
	return s.nextID, nil
}

func (s *Store) SetPrimaryImage(_ context.Context, recordID, mediaID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordID]
	if !ok {
		return ErrRecordNotFound
	}
	if _, ok := s.media[mediaID]; !ok {
		return fmt.Errorf("media %d not found", mediaID)
	}
	rec.Metadata = append(rec.Metadata, MetaEntry{Key: schema.ThumbnailMetaKey, Value: fmt.Sprint(mediaID)})
	return nil
}

func (s *Store) SetTags(_ context.Context, recordID int64, tags []string, taxonomy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordID]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Terms[taxonomy] = append([]string(nil), tags...)
	return nil
}

// RecordRun keeps the report in run history.
func (s *Store) RecordRun(_ context.Context, report *core.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, report)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(_ context.Context, limit int) ([]core.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.RunSummary, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		out = append(out, core.RunSummary{
			RunID:      r.RunID,
			Source:     r.Source,
			Principal:  r.Principal,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			TotalRows:  r.TotalRows,
			Created:    r.Created,
			ErrorCount: len(r.Errors),
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Record returns a copy of a stored record.
func (s *Store) Record(id int64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	cp := *rec
	cp.Metadata = append([]MetaEntry(nil), rec.Metadata...)
	return cp, true
}

// Records returns the IDs of every stored record in creation order.
func (s *Store) Records() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MediaPath returns the source path a media reference was sideloaded from.
func (s *Store) MediaPath(mediaID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.media[mediaID]
	return p, ok
}
