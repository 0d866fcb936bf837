// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

// Aux is the rarely-mutating portion of an activation (spec.md §3): the
// exception continuation, the cancellation continuation, the
// cancellation token, and the trampoline holder. Aux is shared by
// reference across nested combinators; only the success continuation
// changes as computations sequence.
type Aux struct {
	econt  func(*ExceptionInfo) Signal
	ccont  func(*CancelSignal) Signal
	token  CancellationToken
	holder *TrampolineHolder

	// sc is the sync context the current step is executing under, set by
	// [SwitchToContext], cleared by [SwitchToThreadPool] and
	// [SwitchToNewThread], and copied by the wrapping combinators
	// (TryFinally, TryWith, TryCancelled, Catch). Child activations created
	// by [Parallel], [Choice] and [StartChild] start with no sync context.
	// A [suspendedContinuation] captures this at suspension time so a later
	// resumption can apply spec.md §4.5/§9's immediate-vs-post-or-queue
	// rule. Go has no ambient "current thread" concept to consult (see
	// DESIGN.md's Open Question note), so sc is threaded explicitly through
	// Aux rather than looked up from thread-local state.
	sc SyncContext
}

// activation bundles the success continuation with the shared aux block
// that is carried through every step of a computation.
type activation[T any] struct {
	kont func(T) Signal
	aux  *Aux
}

// cancelCheck reports whether aux's token has already been cancelled.
// Return, Delay, Bind, While, Parallel, Choice, StartChild and the bridges
// call this (through checkCancellationOr) before invoking user code or
// the success continuation. TryFinally, TryWith, TryCancelled, Catch,
// Using, SwitchToContext, SwitchToThreadPool and SwitchToNewThread do not
// check the token themselves.
func cancelCheck(aux *Aux) bool {
	return aux.token.IsCancellationRequested()
}

// checkCancellationOr runs onProceed unless aux's token is already
// cancelled, in which case it invokes the cancellation continuation with
// a fresh signal carrying the token. Every leaf primitive that is about
// to invoke user code or a continuation funnels through this.
func checkCancellationOr(aux *Aux, onProceed func() Signal) Signal {
	if cancelCheck(aux) {
		return aux.ccont(newCancelSignal(aux.token))
	}
	return onProceed()
}

// hijackCheckThenCall is the trampoline hijack point (spec.md §4.1): if
// the current step count has crossed the threshold, cont is detached into
// the trampoline's storage slot and control returns to the run loop;
// otherwise cont(value) is tail-called directly.
func hijackCheckThenCall[X any](tr *trampoline, cont func(X) Signal, value X) Signal {
	if tr.incrementBindCount() {
		tr.set(func() Signal { return cont(value) })
		return done
	}
	return cont(value)
}
