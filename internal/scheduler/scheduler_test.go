package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

type countingTrigger struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTrigger) Trigger(ctx context.Context) (domain.AllocationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return domain.AllocationResult{Status: domain.AllocationStatusSkipped}, nil
}

func (c *countingTrigger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunnerTicksAndStopsOnCancel(t *testing.T) {
	trigger := &countingTrigger{}
	runner := NewRunner(trigger, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return trigger.count() >= 2 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}

type fakeArchiver struct {
	mu     sync.Mutex
	sweeps int
}

func (f *fakeArchiver) ArchiveAllocationRuns(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 3, nil
}

func (f *fakeArchiver) ArchiveOrders(ctx context.Context, before time.Time) (int64, error) {
	return 1, nil
}

func (f *fakeArchiver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

type heldLock struct{}

func (heldLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type archiveNotes struct {
	mu     sync.Mutex
	runs   int64
	orders int64
	calls  int
}

func (a *archiveNotes) NotifyArchive(ctx context.Context, runs, orders int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs, a.orders = runs, orders
	a.calls++
	return nil
}

func TestArchiveRunnerSweeps(t *testing.T) {
	arch := &fakeArchiver{}
	runner := NewArchiveRunner(arch, nil, nil, 30, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = runner.Run(ctx) }()

	require.Eventually(t, func() bool { return arch.count() >= 1 },
		time.Second, 5*time.Millisecond)
	cancel()
}

func TestArchiveRunnerNotifiesSweepCounts(t *testing.T) {
	arch := &fakeArchiver{}
	notes := &archiveNotes{}
	runner := NewArchiveRunner(arch, nil, notes, 30, time.Minute, discardLogger())

	require.NoError(t, runner.sweep(context.Background()))
	assert.Equal(t, 1, notes.calls)
	assert.Equal(t, int64(3), notes.runs)
	assert.Equal(t, int64(1), notes.orders)
}

func TestArchiveRunnerSkipsWhenLockHeld(t *testing.T) {
	arch := &fakeArchiver{}
	runner := NewArchiveRunner(arch, heldLock{}, nil, 30, time.Minute, discardLogger())

	require.NoError(t, runner.sweep(context.Background()))
	assert.Zero(t, arch.count())
}
