package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

func TestGuardCoalesceSharesResult(t *testing.T) {
	guard := NewExecutionGuard(GuardCoalesce, 5*time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int

	fn := func(ctx context.Context) (domain.AllocationResult, error) {
		calls++
		close(started)
		<-release
		return domain.AllocationResult{RequestID: "run-1", Status: domain.AllocationStatusOK}, nil
	}

	var wg sync.WaitGroup
	results := make([]domain.AllocationResult, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = guard.Do(context.Background(), fn)
	}()

	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = guard.Do(context.Background(), fn)
	}()

	// Give the second caller a moment to park on the in-flight run.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, calls)
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, "run-1", results[1].RequestID)
}

func TestGuardRejectReturnsConflict(t *testing.T) {
	guard := NewExecutionGuard(GuardReject, 5*time.Second)

	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = guard.Do(context.Background(), func(ctx context.Context) (domain.AllocationResult, error) {
			close(started)
			<-release
			return domain.AllocationResult{}, nil
		})
	}()

	<-started
	_, err := guard.Do(context.Background(), func(ctx context.Context) (domain.AllocationResult, error) {
		t.Fatal("second run must not execute")
		return domain.AllocationResult{}, nil
	})
	require.ErrorIs(t, err, domain.ErrAllocationInFlight)
	close(release)
}

func TestGuardTimeoutCancelsRun(t *testing.T) {
	guard := NewExecutionGuard(GuardCoalesce, 30*time.Millisecond)

	_, err := guard.Do(context.Background(), func(ctx context.Context) (domain.AllocationResult, error) {
		<-ctx.Done()
		return domain.AllocationResult{}, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardSequentialRunsExecuteIndependently(t *testing.T) {
	guard := NewExecutionGuard(GuardReject, time.Second)

	var calls int
	fn := func(ctx context.Context) (domain.AllocationResult, error) {
		calls++
		return domain.AllocationResult{}, nil
	}

	_, err := guard.Do(context.Background(), fn)
	require.NoError(t, err)
	_, err = guard.Do(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGuardCoalescedCallerHonoursOwnContext(t *testing.T) {
	guard := NewExecutionGuard(GuardCoalesce, 5*time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = guard.Do(context.Background(), func(ctx context.Context) (domain.AllocationResult, error) {
			close(started)
			<-release
			return domain.AllocationResult{}, nil
		})
	}()

	<-started
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := guard.Do(ctx, func(ctx context.Context) (domain.AllocationResult, error) {
		return domain.AllocationResult{}, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
