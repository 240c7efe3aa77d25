package core

// run_guard.go keeps import runs from overlapping.
//
// Rows are written without transactions, so two runs over the same source
// would duplicate records. Trigger layers hold the guard for the length of
// a run; a second caller waits up to maxWait and then gets ErrImportRunning.
// WaitForDrain lets shutdown block until the active run finishes.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrImportRunning is returned when another import holds the guard.
var ErrImportRunning = errors.New("an import is already running")

// RunGuard is a one-slot semaphore around import runs.
type RunGuard struct {
	slot    chan struct{}
	maxWait time.Duration

	mu      sync.RWMutex
	active  bool
	since   time.Time
	current string
}

// NewRunGuard creates a guard. Callers of Acquire wait at most maxWait.
func NewRunGuard(maxWait time.Duration) *RunGuard {
	return &RunGuard{
		slot:    make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

// Acquire waits for the slot. label identifies the holder in Status.
// The caller MUST call Release when the run completes (use defer).
func (g *RunGuard) Acquire(ctx context.Context, label string) error {
	if g.maxWait <= 0 {
		if g.TryAcquire(label) {
			return nil
		}
		return ErrImportRunning
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.maxWait)
	defer cancel()

	select {
	case g.slot <- struct{}{}:
		g.markActive(label)
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrImportRunning
	}
}

// TryAcquire takes the slot without blocking.
func (g *RunGuard) TryAcquire(label string) bool {
	select {
	case g.slot <- struct{}{}:
		g.markActive(label)
		return true
	default:
		return false
	}
}

// Release frees the slot. Must be called exactly once per successful acquire.
func (g *RunGuard) Release() {
	g.mu.Lock()
	g.active = false
	g.current = ""
	g.mu.Unlock()

	<-g.slot
}

func (g *RunGuard) markActive(label string) {
	g.mu.Lock()
	g.active = true
	g.since = time.Now()
	g.current = label
	g.mu.Unlock()
}

// Active reports whether a run holds the guard.
func (g *RunGuard) Active() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// WaitForDrain blocks until no run holds the guard or ctx is done.
func (g *RunGuard) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !g.Active() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunGuardStatus is a snapshot of the guard.
type RunGuardStatus struct {
	Active bool      `json:"active"`
	Holder string    `json:"holder,omitempty"`
	Since  time.Time `json:"since,omitempty"`
}

// Status returns the current guard state for monitoring.
func (g *RunGuard) Status() RunGuardStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.active {
		return RunGuardStatus{}
	}
	return RunGuardStatus{Active: true, Holder: g.current, Since: g.since}
}
