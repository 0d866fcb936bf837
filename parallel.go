// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import "sync/atomic"

// Parallel fans out cs with first-failure cancellation (spec.md §4.8).
// cs is a slice and is used as given, so there is no lazy sequence to
// snapshot; zero computations yield an empty slice immediately. Each child runs under a token derived from a
// [CancellationSource] linked to the activation's own token, so that the
// first child to fail or cancel can cancel every sibling still running.
// Sibling completion order is unconstrained; the combinator's own
// continuation fires only after every child has settled.
//
// Grounded on ridge-parallel's Group (spawn/cancel-on-first-error
// supervision loop) for the overall fan-out shape, adapted to spec.md's
// CAS-then-cancel-then-decrement ordering (a child observing "is this the
// first failure" and "should I cancel the siblings" must not race a
// sibling slipping through as a success in between).
func Parallel[T any](cs []Computation[T]) Computation[[]T] {
	return func(a *activation[[]T]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			n := len(cs)
			if n == 0 {
				return hijackCheckThenCall(a.aux.holder.tr, a.kont, []T{})
			}

			sub := LinkSource(a.aux.token)
			results := make([]T, n)
			var remaining atomic.Int64
			remaining.Store(int64(n))
			var failed atomic.Bool
			var failure Outcome[[]T]

			deliver := func() Signal {
				sub.Close()
				if failure.IsErr() {
					ei, _ := failure.Exception()
					return a.aux.econt(ei)
				}
				if failure.IsCanceled() {
					cs, _ := failure.Cancellation()
					return a.aux.ccont(cs)
				}
				return a.kont(results)
			}

			recordFailure := func(o Outcome[[]T]) {
				if failed.CompareAndSwap(false, true) {
					failure = o
					sub.Cancel()
				}
			}

			for i, c := range cs {
				i, c := i, c
				// Each child gets its own TrampolineHolder: a holder's
				// trampoline field is reassigned on every
				// executeWithTrampoline call, so sharing one holder
				// across concurrently-running children would race.
				childHolder := newTrampolineHolder()
				childAux := &Aux{
					econt: func(ei *ExceptionInfo) Signal {
						recordFailure(Err[[]T](ei))
						if remaining.Add(-1) == 0 {
							return deliver()
						}
						return done
					},
					ccont: func(cs *CancelSignal) Signal {
						recordFailure(Canceled[[]T](cs))
						if remaining.Add(-1) == 0 {
							return deliver()
						}
						return done
					},
					token:  sub.Token(),
					holder: childHolder,
				}
				childA := &activation[T]{
					aux: childAux,
					kont: func(v T) Signal {
						results[i] = v
						if remaining.Add(-1) == 0 {
							return deliver()
						}
						return done
					},
				}
				childHolder.queueWorkItemWithTrampoline(func() Signal { return c(childA) })
			}
			return done
		})
	}
}
