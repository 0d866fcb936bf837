// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import "sync/atomic"

// Choice races cs, each yielding an [Option], and selects the first child
// to produce Some(v) (spec.md §4.9). Zero computations yield None
// immediately. The first Some settles the activation and cancels every
// other child; if every child produces None, the Nth None to arrive
// settles the activation with None. The first exception or cancellation
// from any child also settles the activation immediately, cancelling the
// rest.
//
// New combinator: nothing in the retrieval pack implements first-Some-wins
// selection directly, so this is grounded on the same CAS-settle pattern
// as [Parallel] plus the teacher's Affine.TryResume discard-on-loss idiom
// (affine.go) for cancelling losing children.
func Choice[T any](cs []Computation[Option[T]]) Computation[Option[T]] {
	return func(a *activation[Option[T]]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			n := len(cs)
			if n == 0 {
				return hijackCheckThenCall(a.aux.holder.tr, a.kont, None[T]())
			}

			sub := LinkSource(a.aux.token)
			var settled atomic.Bool
			var noneCount atomic.Int64

			settleOnce := func(cancelRest bool, f func() Signal) Signal {
				if !settled.CompareAndSwap(false, true) {
					return done
				}
				if cancelRest {
					sub.Cancel()
				}
				sub.Close()
				return f()
			}

			for _, c := range cs {
				c := c
				childHolder := newTrampolineHolder()
				childAux := &Aux{
					econt: func(ei *ExceptionInfo) Signal {
						return settleOnce(true, func() Signal { return a.aux.econt(ei) })
					},
					ccont: func(cs *CancelSignal) Signal {
						return settleOnce(true, func() Signal { return a.aux.ccont(cs) })
					},
					token:  sub.Token(),
					holder: childHolder,
				}
				childA := &activation[Option[T]]{
					aux: childAux,
					kont: func(opt Option[T]) Signal {
						if v, ok := opt.Get(); ok {
							return settleOnce(true, func() Signal { return a.kont(Some(v)) })
						}
						if noneCount.Add(1) == int64(n) {
							return settleOnce(false, func() Signal { return a.kont(None[T]()) })
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
