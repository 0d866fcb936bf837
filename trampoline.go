// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import "sync/atomic"

// hijackThreshold is the bind-count threshold at which the trampoline
// detaches the pending continuation rather than tail-calling it
// synchronously (spec.md §4.1 reference value: 300). Overridable at
// process start via [WithHijackThreshold]; stored as an atomic rather
// than a const so [Configure] can adjust it before any computation runs.
var hijackThreshold atomic.Int64

func init() { hijackThreshold.Store(300) }

// trampoline bounds synchronous recursion for one execution step: it
// counts binds and, once the threshold is crossed, stores the pending
// continuation so the run loop in execute can invoke it iteratively
// instead of growing the call stack further.
//
// The spec models this as thread-local state guarded by a per-OS-thread
// reentrancy flag. Go goroutines are not OS threads and have no stable
// thread-local storage, but none is needed here: a *trampoline is owned
// by exactly one *TrampolineHolder for the duration of one synchronous
// execution step, and only one goroutine ever touches a given holder at
// a time (handoffs to other goroutines happen only through the posting/
// queueing/threading primitives below, each of which happens-before the
// next access via the goroutine launch or channel operation that
// performs the handoff). So plain fields replace thread-local storage
// without weakening the "never concurrently accessed" invariant.
type trampoline struct {
	bindCount int
	stored    func() Signal
}

// incrementBindCount increments the step counter and reports whether it
// has reached the hijack threshold.
func (t *trampoline) incrementBindCount() bool {
	t.bindCount++
	return int64(t.bindCount) >= hijackThreshold.Load()
}

// set stores action as the pending continuation and resets the counter.
// Panics if a continuation is already pending: at most one may be stored
// at a time (spec.md §4.1 invariant).
func (t *trampoline) set(action func() Signal) {
	if t.stored != nil {
		panic("async: trampoline already has a pending continuation")
	}
	t.stored = action
	t.bindCount = 0
}

// execute runs firstAction, then iteratively drains the stored slot until
// it is empty, returning the final Signal.
func (t *trampoline) execute(firstAction func() Signal) Signal {
	sig := firstAction()
	for t.stored != nil {
		next := t.stored
		t.stored = nil
		sig = next()
	}
	return sig
}

// SyncContext is a host-provided abstraction for posting a callback back
// onto a specific execution environment (spec.md Glossary "Sync
// context"), analogous to a UI-thread dispatcher. Computations that never
// call [SwitchToContext] or use a sync-context-aware bridge can ignore
// this entirely; the default scheduling surface ([SwitchToThreadPool],
// the default worker pool) needs no SyncContext at all.
type SyncContext interface {
	// Post schedules f to run on this context's execution environment.
	// Implementations must not block the caller.
	Post(f func())
}

// TrampolineHolder owns the trampoline for one top-level synchronous
// execution step and exposes the scheduling primitives combinators use to
// migrate across goroutines (spec.md §4.2).
type TrampolineHolder struct {
	tr *trampoline
}

// newTrampolineHolder creates a holder with no active trampoline; one is
// allocated on the first call to executeWithTrampoline.
func newTrampolineHolder() *TrampolineHolder {
	return &TrampolineHolder{}
}

// executeWithTrampoline allocates a fresh trampoline and runs firstAction
// under it.
func (h *TrampolineHolder) executeWithTrampoline(firstAction func() Signal) Signal {
	h.tr = &trampoline{}
	return h.tr.execute(firstAction)
}

// postWithTrampoline posts a work item to sc that, when run, executes f
// under a fresh trampoline.
func (h *TrampolineHolder) postWithTrampoline(sc SyncContext, f func() Signal) {
	sc.Post(func() { h.executeWithTrampoline(f) })
}

// queueWorkItemWithTrampoline enqueues f on the default worker pool. It
// panics if the pool rejects the work item (spec.md §7 misuse kind:
// "queueing rejected by the thread pool").
func (h *TrampolineHolder) queueWorkItemWithTrampoline(f func() Signal) {
	if !defaultPool.tryQueue(func() { h.executeWithTrampoline(f) }) {
		panic("async: default worker pool rejected work item")
	}
}

// postOrQueueWithTrampoline queues f on the pool if sc is nil, otherwise
// posts it to sc.
func (h *TrampolineHolder) postOrQueueWithTrampoline(sc SyncContext, f func() Signal) {
	if sc == nil {
		h.queueWorkItemWithTrampoline(f)
		return
	}
	h.postWithTrampoline(sc, f)
}

// startThreadWithTrampoline starts a dedicated background goroutine that
// executes f under a fresh trampoline.
func (h *TrampolineHolder) startThreadWithTrampoline(f func() Signal) {
	go func() { h.executeWithTrampoline(f) }()
}
