// Package watch re-runs an import whenever its source file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before a run starts.
const DefaultDebounce = 500 * time.Millisecond

// Trigger runs one import of path.
type Trigger func(ctx context.Context, path string) error

// Watcher monitors one import file and triggers a run after it changes.
// Runs never overlap: changes during a run queue at most one more run.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	trigger  Trigger

	mu           sync.Mutex
	lastModified time.Time
	size         int64

	pending chan struct{}

	// OnError receives trigger and watcher errors. Defaults to slog.
	OnError func(path string, err error)
}

// New watches path. The file must exist.
func New(path string, debounce time.Duration, trigger Trigger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory containing the file; editors often replace the
	// file instead of writing it in place.
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:      fsWatcher,
		path:         absPath,
		debounce:     debounce,
		trigger:      trigger,
		lastModified: stat.ModTime(),
		size:         stat.Size(),
		pending:      make(chan struct{}, 1),
		OnError: func(path string, err error) {
			slog.Error("watch: import failed", "path", path, "error", err)
		},
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run starts the watch loop. Blocks until context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	defer wg.Wait()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			absPath, err := filepath.Abs(event.Name)
			if err != nil || absPath != w.path {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.schedule)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.OnError(w.path, err)
		}
	}
}

// schedule queues a run unless one is already queued.
func (w *Watcher) schedule() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pending:
			if !w.changed() {
				continue
			}
			slog.Info("watch: source changed, starting import", "path", w.path)
			if err := w.trigger(ctx, w.path); err != nil {
				w.OnError(w.path, err)
			}
		}
	}
}

// changed reports whether the file differs from the last run, and records
// its current state.
func (w *Watcher) changed() bool {
	stat, err := os.Stat(w.path)
	if err != nil {
		w.OnError(w.path, err)
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if stat.ModTime().Equal(w.lastModified) && stat.Size() == w.size {
		return false
	}
	w.lastModified = stat.ModTime()
	w.size = stat.Size()
	return true
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
