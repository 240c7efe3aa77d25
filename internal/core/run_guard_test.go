package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGuard_SingleHolder(t *testing.T) {
	g := NewRunGuard(0)

	require.NoError(t, g.Acquire(context.Background(), "first"))
	assert.True(t, g.Active())
	assert.Equal(t, "first", g.Status().Holder)

	assert.ErrorIs(t, g.Acquire(context.Background(), "second"), ErrImportRunning)
	assert.False(t, g.TryAcquire("third"))

	g.Release()
	assert.False(t, g.Active())
	assert.Equal(t, RunGuardStatus{}, g.Status())
	assert.True(t, g.TryAcquire("fourth"))
	g.Release()
}

func TestRunGuard_WaitsUpToMaxWait(t *testing.T) {
	g := NewRunGuard(50 * time.Millisecond)
	require.NoError(t, g.Acquire(context.Background(), "first"))

	start := time.Now()
	err := g.Acquire(context.Background(), "second")
	assert.ErrorIs(t, err, ErrImportRunning)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		g.Release()
	}()
	require.NoError(t, g.Acquire(context.Background(), "third"))
	g.Release()
}

func TestRunGuard_CallerCancellation(t *testing.T) {
	g := NewRunGuard(time.Second)
	require.NoError(t, g.Acquire(context.Background(), "first"))
	defer g.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.Acquire(ctx, "second"), context.Canceled)
}

func TestRunGuard_WaitForDrain(t *testing.T) {
	g := NewRunGuard(0)
	require.NoError(t, g.WaitForDrain(context.Background()))

	require.True(t, g.TryAcquire("run"))
	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Release()
	}()
	require.NoError(t, g.WaitForDrain(context.Background()))

	require.True(t, g.TryAcquire("stuck"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.WaitForDrain(ctx), context.DeadlineExceeded)
	g.Release()
}
