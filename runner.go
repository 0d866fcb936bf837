// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// runConfig collects the functional options accepted by [RunSynchronously].
type runConfig struct {
	token      CancellationToken
	hasTimeout bool
	timeout    time.Duration
	sc         SyncContext
}

// RunOption configures a [RunSynchronously] call.
type RunOption func(*runConfig)

// WithTimeout bounds RunSynchronously to d, after which it raises an error
// wrapping [ErrTimeout] (spec.md §4.6 runSynchronouslyInAnotherThread).
func WithTimeout(d time.Duration) RunOption {
	return func(c *runConfig) { c.timeout, c.hasTimeout = d, true }
}

// WithToken supplies the cancellation token the computation observes.
func WithToken(t CancellationToken) RunOption {
	return func(c *runConfig) { c.token = t }
}

// WithSyncContext tells RunSynchronously which sync context the caller is
// presently executing under, so it can decide between the in-thread and
// other-thread runner the way spec.md §4.6 describes ("if current sync
// context is null and no timeout, use current-thread runner"). Go has no
// ambient notion of "the context the caller is on"; callers that run
// inside a dispatcher loop should pass it explicitly.
func WithSyncContext(sc SyncContext) RunOption {
	return func(c *runConfig) { c.sc = sc }
}

func resolveRunOptions(opts []RunOption) runConfig {
	cfg := runConfig{token: DefaultCancellationToken()}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// newRootActivation builds the activation a runner hands to a top-level
// computation: all three continuations write into cell rather than
// chaining further, and reuseThread is passed through to registerResult
// so a single synchronous waiter may resume inline (spec.md §4.4).
func newRootActivation[T any](token CancellationToken, holder *TrampolineHolder, cell *ResultCell[Outcome[T]]) *activation[T] {
	return &activation[T]{
		kont: func(v T) Signal {
			cell.registerResult(Ok(v), true)
			return done
		},
		aux: &Aux{
			econt: func(ei *ExceptionInfo) Signal {
				cell.registerResult(Err[T](ei), true)
				return done
			},
			ccont: func(cs *CancelSignal) Signal {
				cell.registerResult(Canceled[T](cs), true)
				return done
			},
			token:  token,
			holder: holder,
		},
	}
}

// commitOutcome converts a settled [Outcome] into the (T, error) pair a
// runner returns: success passes through, an exception re-raises with its
// preserved stack trace intact (*ExceptionInfo already implements error),
// and cancellation raises a [CancelError] (spec.md §7 "User-visible
// behavior at top-level").
func commitOutcome[T any](out Outcome[T]) (T, error) {
	if v, ok := out.Value(); ok {
		return v, nil
	}
	if ei, ok := out.Exception(); ok {
		var zero T
		return zero, ei
	}
	cs, _ := out.Cancellation()
	var zero T
	return zero, &CancelError{Signal: cs}
}

// RunSynchronouslyInCurrentThread runs c to completion on the calling
// goroutine under a fresh trampoline, blocking until it settles (spec.md
// §4.6).
func RunSynchronouslyInCurrentThread[T any](token CancellationToken, c Computation[T]) (T, error) {
	holder := newTrampolineHolder()
	cell := NewResultCell[Outcome[T]]()
	a := newRootActivation(token, holder, cell)
	holder.executeWithTrampoline(func() Signal { return c(a) })
	out, _ := cell.tryWaitForResultSynchronously(0, false)
	cell.close()
	return commitOutcome(out)
}

// RunSynchronouslyInAnotherThread queues c onto the default worker pool
// and blocks the calling goroutine until it settles or, if hasTimeout,
// until timeout elapses first (spec.md §4.6). On timeout it cancels a
// linked sub-source so c observes cancellation, waits unboundedly for c
// to actually quiesce (so the pool goroutine is never abandoned mid-run),
// then raises an error wrapping [ErrTimeout] — combined via
// go.uber.org/multierr with any secondary failure c reports during that
// drain, so a late exception is never silently dropped.
func RunSynchronouslyInAnotherThread[T any](token CancellationToken, c Computation[T], timeout time.Duration, hasTimeout bool) (T, error) {
	holder := newTrampolineHolder()
	cell := NewResultCell[Outcome[T]]()

	runToken := token
	var sub *CancellationSource
	if hasTimeout {
		sub = LinkSource(token)
		runToken = sub.Token()
	}
	a := newRootActivation(runToken, holder, cell)
	holder.queueWorkItemWithTrampoline(func() Signal { return c(a) })

	if !hasTimeout {
		out, _ := cell.tryWaitForResultSynchronously(0, false)
		cell.close()
		return commitOutcome(out)
	}

	out, ok := cell.tryWaitForResultSynchronously(timeout, true)
	if ok {
		sub.Close()
		cell.close()
		return commitOutcome(out)
	}

	sub.Cancel()
	out, _ = cell.tryWaitForResultSynchronously(0, false)
	sub.Close()
	cell.close()

	timeoutErr := fmt.Errorf("async: runSynchronously: %w after %s", ErrTimeout, timeout)
	if ei, isErr := out.Exception(); isErr {
		var zero T
		return zero, multierr.Append(timeoutErr, ei)
	}
	var zero T
	return zero, timeoutErr
}

// RunSynchronously blocks the calling goroutine until c settles, raising
// on exception or cancellation, or raising a timeout error if
// [WithTimeout] elapses first. It dispatches between the in-thread and
// other-thread runner per spec.md §4.6.
func RunSynchronously[T any](c Computation[T], opts ...RunOption) (T, error) {
	cfg := resolveRunOptions(opts)
	if cfg.sc == nil && !cfg.hasTimeout {
		return RunSynchronouslyInCurrentThread(cfg.token, c)
	}
	return RunSynchronouslyInAnotherThread(cfg.token, c, cfg.timeout, cfg.hasTimeout)
}

// startConfig collects the functional options accepted by [Start] and its
// siblings.
type startConfig struct {
	token CancellationToken
}

// StartOption configures a [Start], [StartAsTask], [StartImmediate],
// [StartImmediateAsTask], or [StartWithContinuations] call.
type StartOption func(*startConfig)

// WithStartToken supplies the cancellation token the started computation
// observes.
func WithStartToken(t CancellationToken) StartOption {
	return func(c *startConfig) { c.token = t }
}

func resolveStartOptions(opts []StartOption) startConfig {
	cfg := startConfig{token: DefaultCancellationToken()}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Start queues c onto the default worker pool with a no-op success
// continuation, re-raises any exception onto the worker goroutine (it is
// not caught — spec.md §4.6/§7 "exceptions escape onto the worker
// thread"), and silently swallows cancellation.
func Start[T any](c Computation[T], opts ...StartOption) {
	cfg := resolveStartOptions(opts)
	holder := newTrampolineHolder()
	a := &activation[T]{
		kont: func(T) Signal { return done },
		aux: &Aux{
			econt: func(ei *ExceptionInfo) Signal {
				logger().Error("async: start: computation failed", errField(ei))
				panic(ei)
			},
			ccont:  func(*CancelSignal) Signal { return done },
			token:  cfg.token,
			holder: holder,
		},
	}
	holder.queueWorkItemWithTrampoline(func() Signal { return c(a) })
}

// StartImmediate is [Start]'s in-thread analogue (SPEC_FULL.md §3
// supplement): it runs c's first synchronous step on the calling
// goroutine under a fresh trampoline instead of queuing to the pool.
func StartImmediate[T any](c Computation[T], opts ...StartOption) {
	cfg := resolveStartOptions(opts)
	holder := newTrampolineHolder()
	a := &activation[T]{
		kont: func(T) Signal { return done },
		aux: &Aux{
			econt: func(ei *ExceptionInfo) Signal {
				logger().Error("async: startImmediate: computation failed", errField(ei))
				panic(ei)
			},
			ccont:  func(*CancelSignal) Signal { return done },
			token:  cfg.token,
			holder: holder,
		},
	}
	holder.executeWithTrampoline(func() Signal { return c(a) })
}

// Task is a settle-once completion source bridging the computation model
// with externally-awaited results (spec.md §4.6 startAsTask, §6
// awaitTask). Grounded on the Start/Await/Wait shape of
// unkn0wn-root-go-async/task.go, adapted to route through a [ResultCell]
// so the single-waiter reuse-thread optimization in spec.md §4.4 applies.
type Task[T any] struct {
	cell    *ResultCell[Outcome[T]]
	done    chan struct{}
	settled Latch
}

func newTask[T any]() *Task[T] {
	return &Task[T]{cell: NewResultCell[Outcome[T]](), done: make(chan struct{})}
}

// settle records o as the task's final outcome. Only the first call has
// any effect; a task completes exactly once.
func (t *Task[T]) settle(o Outcome[T]) {
	if !t.settled.Fire() {
		return
	}
	t.cell.registerResult(o, true)
	close(t.done)
}

// Done returns a channel closed once the task has settled.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task settles, then returns its result or error
// (exception re-raised, cancellation raised as a [CancelError]).
func (t *Task[T]) Wait() (T, error) {
	out, _ := t.cell.tryWaitForResultSynchronously(0, false)
	return commitOutcome(out)
}

// Outcome blocks until the task settles and returns its raw [Outcome].
func (t *Task[T]) Outcome() Outcome[T] {
	out, _ := t.cell.tryWaitForResultSynchronously(0, false)
	return out
}

// StartAsTask queues c onto the default worker pool and returns a [Task]
// whose completion source is wired to c's three continuations (spec.md
// §4.6).
func StartAsTask[T any](c Computation[T], opts ...StartOption) *Task[T] {
	cfg := resolveStartOptions(opts)
	holder := newTrampolineHolder()
	task := newTask[T]()
	a := &activation[T]{
		kont: func(v T) Signal { task.settle(Ok(v)); return done },
		aux: &Aux{
			econt:  func(ei *ExceptionInfo) Signal { task.settle(Err[T](ei)); return done },
			ccont:  func(cs *CancelSignal) Signal { task.settle(Canceled[T](cs)); return done },
			token:  cfg.token,
			holder: holder,
		},
	}
	holder.queueWorkItemWithTrampoline(func() Signal { return c(a) })
	return task
}

// StartImmediateAsTask is [StartAsTask]'s in-thread analogue
// (SPEC_FULL.md §3 supplement), running c's first synchronous step
// inline on the caller's goroutine.
func StartImmediateAsTask[T any](c Computation[T], opts ...StartOption) *Task[T] {
	cfg := resolveStartOptions(opts)
	holder := newTrampolineHolder()
	task := newTask[T]()
	a := &activation[T]{
		kont: func(v T) Signal { task.settle(Ok(v)); return done },
		aux: &Aux{
			econt:  func(ei *ExceptionInfo) Signal { task.settle(Err[T](ei)); return done },
			ccont:  func(cs *CancelSignal) Signal { task.settle(Canceled[T](cs)); return done },
			token:  cfg.token,
			holder: holder,
		},
	}
	holder.executeWithTrampoline(func() Signal { return c(a) })
	return task
}

// StartWithContinuations runs c inline on the caller's goroutine under a
// fresh trampoline, terminating via three user-supplied callbacks rather
// than re-raising or returning (spec.md §4.6): no exception escapes the
// runner itself.
func StartWithContinuations[T any](c Computation[T], k func(T), ek func(error), ck func(*CancelSignal), opts ...StartOption) {
	cfg := resolveStartOptions(opts)
	holder := newTrampolineHolder()
	a := &activation[T]{
		kont: func(v T) Signal { k(v); return done },
		aux: &Aux{
			econt:  func(ei *ExceptionInfo) Signal { ek(ei); return done },
			ccont:  func(cs *CancelSignal) Signal { ck(cs); return done },
			token:  cfg.token,
			holder: holder,
		},
	}
	holder.executeWithTrampoline(func() Signal { return c(a) })
}

// StartWithContinuationsUsingDispatchInfo is [StartWithContinuations]'s
// variant (SPEC_FULL.md §3 supplement) whose exception callback receives
// the preserved *[ExceptionInfo] (capture site and original stack) rather
// than a bare error, for callers that need to re-associate or faithfully
// re-raise it later.
func StartWithContinuationsUsingDispatchInfo[T any](c Computation[T], k func(T), ek func(*ExceptionInfo), ck func(*CancelSignal), opts ...StartOption) {
	cfg := resolveStartOptions(opts)
	holder := newTrampolineHolder()
	a := &activation[T]{
		kont: func(v T) Signal { k(v); return done },
		aux: &Aux{
			econt:  func(ei *ExceptionInfo) Signal { ek(ei); return done },
			ccont:  func(cs *CancelSignal) Signal { ck(cs); return done },
			token:  cfg.token,
			holder: holder,
		},
	}
	holder.executeWithTrampoline(func() Signal { return c(a) })
}
