// Package resource provides global governance of the engine's parallel
// element loops: a cap on concurrently running partitioned loops and
// accounting (with an optional hard limit) for the working memory of
// allocated output buffers.
package resource

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Config holds resource limits.
type Config struct {
	// MaxWorkers is the number of goroutines a single partitioned
	// element loop may use. If 0, defaults to GOMAXPROCS.
	MaxWorkers int

	// MaxParallelRuns is the maximum number of partitioned element
	// loops running at the same time. If 0, defaults to 1.
	MaxParallelRuns int64

	// MemoryLimitBytes is the hard limit for engine-allocated output
	// buffers. If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64
}

// Controller manages global resources (workers, memory) for the
// transform engine. A nil Controller disables all limits.
type Controller struct {
	workers int

	runSem *semaphore.Weighted

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	if cfg.MaxParallelRuns <= 0 {
		cfg.MaxParallelRuns = 1
	}

	c := &Controller{
		workers: cfg.MaxWorkers,
		runSem:  semaphore.NewWeighted(cfg.MaxParallelRuns),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	return c
}

// Workers returns the per-loop worker budget.
func (c *Controller) Workers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return c.workers
}

// AcquireRun reserves a slot for one partitioned element loop.
// Blocks while all slots are busy.
func (c *Controller) AcquireRun(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.runSem.Acquire(ctx, 1)
}

// ReleaseRun releases a partitioned-loop slot.
func (c *Controller) ReleaseRun() {
	if c == nil {
		return
	}
	c.runSem.Release(1)
}

// AcquireMemory reserves output-buffer memory. If a hard limit is
// configured and usage would exceed it, this blocks until memory is
// released or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves memory without blocking.
// Returns true if acquired, false if the limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}
