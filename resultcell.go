// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"sync"
	"time"
)

// cellState tags the three states a [ResultCell] moves through (spec.md
// §3): empty, filled with a value, or closed.
type cellState uint8

const (
	cellEmpty cellState = iota
	cellFilled
	cellClosed
)

// ResultCell is a one-shot rendezvous object bridging an asynchronous
// completion source (a timer, an I/O callback, a child computation) with
// one or more waiting computations (spec.md §4.4). All state transitions
// are serialized by a single mutex; waiter resumption always happens
// outside the lock so a resumed waiter that re-enters the cell cannot
// deadlock on its own registration.
type ResultCell[T any] struct {
	mu      sync.Mutex
	state   cellState
	value   T
	waiters []*suspendedContinuation[T]
	wh      chan struct{}
}

// NewResultCell creates an empty cell.
func NewResultCell[T any]() *ResultCell[T] {
	return &ResultCell[T]{}
}

// registerResult fills the cell with v and resumes every waiter exactly
// once (spec.md §4.4). If the cell is already filled or closed the value
// is dropped. When exactly one waiter is registered and reuseThread is
// true, that waiter's immediate resumption may run synchronously on the
// caller's goroutine; otherwise every waiter is resumed via post-or-queue.
func (c *ResultCell[T]) registerResult(v T, reuseThread bool) {
	c.mu.Lock()
	if c.state != cellEmpty {
		c.mu.Unlock()
		return
	}
	c.state = cellFilled
	c.value = v
	if c.wh != nil {
		close(c.wh)
	}
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	switch {
	case len(waiters) == 0:
		return
	case len(waiters) == 1 && reuseThread:
		waiters[0].resume(true, v)
	default:
		for _, w := range waiters {
			w.resume(false, v)
		}
	}
}

// awaitResultNoDirectCancelOrTimeout is the computation form of spec.md
// §4.4's `awaitResult_noDirectCancelOrTimeout`: it peeks at the cell's
// state and either invokes the success continuation immediately (result
// already present) or parks the activation as a waiter and returns
// without invoking anything. It does not itself observe cancellation or
// timeout — callers that need either compose this with a token
// registration or a timer (see bridge.go, startchild.go).
func (c *ResultCell[T]) awaitResultNoDirectCancelOrTimeout() Computation[T] {
	return func(a *activation[T]) Signal {
		c.mu.Lock()
		if c.state == cellFilled {
			v := c.value
			c.mu.Unlock()
			return a.kont(v)
		}
		c.waiters = append(c.waiters, &suspendedContinuation[T]{
			kont:   a.kont,
			sc:     a.aux.sc,
			holder: a.aux.holder,
		})
		c.mu.Unlock()
		return done
	}
}

// tryWaitForResultSynchronously blocks the calling goroutine until the
// cell is filled or, if hasTimeout is true, until timeout elapses. It
// materializes a wait handle on first use (spec.md §4.4
// tryWaitForResultSynchronously/getWaitHandle).
func (c *ResultCell[T]) tryWaitForResultSynchronously(timeout time.Duration, hasTimeout bool) (T, bool) {
	wh := c.getWaitHandle()
	if !hasTimeout {
		<-wh
		return c.snapshot()
	}
	select {
	case <-wh:
		return c.snapshot()
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

func (c *ResultCell[T]) snapshot() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.state == cellFilled
}

// getWaitHandle lazily creates the cell's signalling channel, already
// closed if a result is present. Idempotent (spec.md §4.4).
func (c *ResultCell[T]) getWaitHandle() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wh == nil {
		c.wh = make(chan struct{})
		if c.state == cellFilled {
			close(c.wh)
		}
	}
	return c.wh
}

// close disposes the wait handle, if any, and marks the cell closed so
// subsequent registerResult calls become no-ops (spec.md §4.4). Safe to
// call more than once.
func (c *ResultCell[T]) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == cellClosed {
		return
	}
	if c.wh != nil && c.state != cellFilled {
		close(c.wh)
	}
	c.state = cellClosed
}

// suspendedContinuation captures an activation's success continuation
// plus the sync context recorded at suspension time (spec.md §4.5). Go
// goroutines have no stable "current thread" handle to compare against
// (see DESIGN.md's Open Question note), so the immediate-resumption test
// is reduced to: no captured sync context, and the caller has asserted
// (via reuseThread) that continuing on its own goroutine is safe. Every
// other case resumes via post-or-queue.
type suspendedContinuation[T any] struct {
	kont   func(T) Signal
	sc     SyncContext
	holder *TrampolineHolder
}

// resume invokes the continuation with v, either synchronously on the
// calling goroutine (immediate resumption) or scheduled via the captured
// sync context or the default pool (post-or-queue).
func (s *suspendedContinuation[T]) resume(reuseThread bool, v T) Signal {
	if s.sc == nil && reuseThread {
		return s.holder.executeWithTrampoline(func() Signal { return s.kont(v) })
	}
	s.holder.postOrQueueWithTrampoline(s.sc, func() Signal { return s.kont(v) })
	return done
}
