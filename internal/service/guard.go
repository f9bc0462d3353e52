package service

import (
	"context"
	"sync"
	"time"

	"github.com/qrlworks/qrlbot/internal/domain"
)

// GuardPolicy controls how concurrent allocation triggers are handled.
type GuardPolicy string

const (
	// GuardCoalesce makes concurrent triggers wait for and share the result
	// of the run already in flight.
	GuardCoalesce GuardPolicy = "coalesce"
	// GuardReject fails concurrent triggers immediately with
	// domain.ErrAllocationInFlight.
	GuardReject GuardPolicy = "reject"
)

// flight tracks a single in-progress allocation run.
type flight struct {
	done chan struct{}
	res  domain.AllocationResult
	err  error
}

// ExecutionGuard serialises allocation runs within one process: at most one
// run executes at a time, regardless of how many schedulers or HTTP triggers
// fire. This guard is strictly in-process; cross-instance order safety rests
// on the client order ID idempotency key, not on this mutex.
type ExecutionGuard struct {
	mu       sync.Mutex
	inflight *flight
	policy   GuardPolicy
	timeout  time.Duration
}

// NewExecutionGuard creates a guard with the given concurrency policy and
// per-run timeout.
func NewExecutionGuard(policy GuardPolicy, timeout time.Duration) *ExecutionGuard {
	return &ExecutionGuard{
		policy:  policy,
		timeout: timeout,
	}
}

// Do runs fn under the guard. When a run is already in flight, the behaviour
// depends on the policy: reject returns domain.ErrAllocationInFlight at
// once, coalesce blocks until the in-flight run finishes and returns its
// result to every waiter.
//
// The run itself executes under a timeout derived from a context detached
// from the trigger's cancellation, so a disconnecting HTTP client cannot
// abort a run other callers are coalesced onto.
func (g *ExecutionGuard) Do(ctx context.Context, fn func(context.Context) (domain.AllocationResult, error)) (domain.AllocationResult, error) {
	g.mu.Lock()
	if f := g.inflight; f != nil {
		g.mu.Unlock()

		if g.policy == GuardReject {
			return domain.AllocationResult{}, domain.ErrAllocationInFlight
		}

		select {
		case <-f.done:
			return f.res, f.err
		case <-ctx.Done():
			return domain.AllocationResult{}, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	g.inflight = f
	g.mu.Unlock()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	f.res, f.err = fn(runCtx)

	g.mu.Lock()
	g.inflight = nil
	g.mu.Unlock()
	close(f.done)

	return f.res, f.err
}
