// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package async provides a compositional framework for describing
// non-blocking computations as first-class values.
//
// A [Computation] is a deferred, continuation-passing computation: given
// an activation record carrying a success continuation, an exception
// continuation, a cancellation continuation, a cancellation token, and a
// trampoline holder, it runs zero or more synchronous steps and either
// invokes one of the three continuations, or arranges for the success
// continuation to be invoked later by some external event.
//
// # Composition
//
// Computations are built from a small set of primitives and combined
// without blocking any goroutine:
//
//   - [Return], [Delay], [Bind], [Sequential]: sequencing
//   - [TryFinally], [TryWith], [Catch]: exception handling
//   - [Using], [While], [For]: resource and looping constructs
//   - [SwitchToContext], [SwitchToThreadPool], [SwitchToNewThread]: scheduler migration
//
// # Trampoline
//
// Deep synchronous bind chains are bounded by a per-execution-step
// trampoline (see trampoline.go) rather than by the Go call stack:
// after a fixed number of binds, the pending continuation is detached
// into a storage slot and resumed iteratively by the trampoline's run
// loop, so composing thousands of Binds in a row does not overflow the
// goroutine stack.
//
// # Structured concurrency
//
// [Parallel] fans out N computations with first-failure cancellation.
// [Choice] races N computations that each yield an optional value,
// selecting the first success. [StartChild] runs a computation as a
// cancellation-linked child and returns a handle to await its result.
//
// # Bridging external completions
//
// [FromContinuations], [FromBeginEnd], [AwaitWaitHandle], [AwaitTask],
// and [AwaitEvent] bridge externally-scheduled callbacks (timers,
// begin/end pairs, wait handles, tasks, events) into the computation
// model. FromBeginEnd, AwaitTask and AwaitEvent do so via [ResultCell], a
// one-shot rendezvous object supporting multi-waiter registration and
// synchronous wait with timeout; FromContinuations and AwaitWaitHandle
// resume the computation directly.
//
// # Running computations
//
// [RunSynchronously] blocks the calling goroutine until the computation
// completes, raising on exception or cancellation. [Start] and
// [StartAsTask] launch a computation onto the default worker pool.
// [StartWithContinuations] runs a computation inline on the caller's
// goroutine with user-supplied terminal continuations.
//
// This package has no preemption, no persistent or distributed
// scheduling, and no fairness guarantees across unrelated computations;
// it consumes completion callbacks from arbitrary sources rather than
// depending on any specific I/O reactor.
package async
