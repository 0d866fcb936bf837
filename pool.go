// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	_ "go.uber.org/automaxprocs" // right-sizes GOMAXPROCS from the container CPU quota on init
	"golang.org/x/sync/semaphore"
)

// workerPool is the default worker pool backing
// TrampolineHolder.queueWorkItemWithTrampoline and [SwitchToThreadPool].
// Grounded on golang.org/x/sync/semaphore (golang.org/x/sync is an
// indirect dependency of joeycumines-go-utilpkg in the retrieval pack;
// promoted here to a direct, exercised dependency): capacity is bounded
// rather than spawning an unbounded goroutine per queued item, matching
// the spec's notion of a fixed-size "default worker pool" that can reject
// work rather than a raw `go func(){}()`.
type workerPool struct {
	sem *semaphore.Weighted
}

// defaultPool is sized from GOMAXPROCS(0), which automaxprocs' init has
// already right-sized to the host/container's real CPU quota.
var defaultPool = newWorkerPool(int64(max(runtime.GOMAXPROCS(0), 1)) * poolCapacityMultiplier)

// poolCapacityMultiplier oversubscribes the pool relative to GOMAXPROCS
// since queued work items are typically blocked on I/O (bridges, result
// cells) rather than CPU-bound.
const poolCapacityMultiplier = 64

func newWorkerPool(capacity int64) *workerPool {
	return &workerPool{sem: semaphore.NewWeighted(capacity)}
}

// tryQueue attempts to launch f on a pooled goroutine without blocking.
// Returns false if the pool is at capacity (spec.md §7 misuse kind).
func (p *workerPool) tryQueue(f func()) bool {
	if !p.sem.TryAcquire(1) {
		logger().Warn("async: default worker pool at capacity, rejecting work item")
		return false
	}
	go func() {
		defer p.sem.Release(1)
		f()
	}()
	return true
}

// queueBlocking launches f on the pool, waiting for capacity if
// necessary instead of rejecting f. The combinators in this package,
// Parallel and StartChild included, queue through tryQueue instead.
func (p *workerPool) queueBlocking(ctx context.Context, f func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		f()
	}()
	return nil
}

// SetPoolCapacity resizes the default worker pool. Intended for process
// start-up configuration (see [Configure]); resizing while work is queued
// changes capacity for future Acquire calls only.
func SetPoolCapacity(capacity int64) {
	defaultPool = newWorkerPool(capacity)
	logger().Debug("async: default worker pool resized", zap.Int64("capacity", capacity))
}
