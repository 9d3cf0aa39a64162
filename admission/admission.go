// Package admission bounds how many outbound network operations may be in
// flight at once. A single Governor is created by the orchestrator and passed
// into every component that issues DNS or HTTP traffic.
package admission

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit matches the default --concurrency flag value.
const DefaultLimit = 100

// Governor is a counting admission limiter. Every network-issuing operation
// acquires exactly one slot for its duration and must release it on every
// exit path. A nil Governor admits everything.
type Governor struct {
	sem   *semaphore.Weighted
	limit int64
}

// New creates a Governor admitting at most limit concurrent operations.
// Non-positive limits fall back to DefaultLimit.
func New(limit int) *Governor {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Governor{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Governor) Acquire(ctx context.Context) error {
	if g == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return g.sem.Acquire(ctx, 1)
}

// Release returns a previously acquired slot.
func (g *Governor) Release() {
	if g == nil {
		return
	}
	g.sem.Release(1)
}

// Limit reports the configured admission limit.
func (g *Governor) Limit() int {
	if g == nil {
		return 0
	}
	return int(g.limit)
}
