// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import "go.uber.org/zap"

// Return lifts a pure value into a computation that immediately passes it
// to its success continuation (spec.md §4.3).
func Return[T any](v T) Computation[T] {
	return func(a *activation[T]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			return hijackCheckThenCall(a.aux.holder.tr, a.kont, v)
		})
	}
}

// Zero is the computation returning no useful value, used as the base
// case for [While] and the implicit result of a body with no expression.
func Zero() Computation[struct{}] {
	return Return(struct{}{})
}

// Delay defers construction of a computation until it is invoked, and
// captures any panic f raises as an exception delivered to the exception
// continuation rather than letting it escape synchronously (spec.md
// §4.3: "delay(f) ≡ bind of a cancellation-checked protect-of f() with
// identity").
func Delay[T any](f func() Computation[T]) Computation[T] {
	return func(a *activation[T]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			return protect(a.aux, f, func(next Computation[T]) Signal {
				return hijackCheckThenCall(a.aux.holder.tr, next, a)
			})
		})
	}
}

// Bind sequences p with f: p's result is passed to f to obtain the next
// computation, which continues with the original success continuation
// (spec.md §4.3).
func Bind[A, B any](p Computation[A], f func(A) Computation[B]) Computation[B] {
	return func(a *activation[B]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			pa := &activation[A]{
				aux: a.aux,
				kont: func(v A) Signal {
					return protect(a.aux, func() Computation[B] { return f(v) }, func(next Computation[B]) Signal {
						return hijackCheckThenCall(a.aux.holder.tr, next, a)
					})
				},
			}
			return hijackCheckThenCall(a.aux.holder.tr, p, pa)
		})
	}
}

// Map transforms p's result with a pure function f. It is implemented as
// Bind(p, func(v A) Computation[B] { return Return(f(v)) }).
func Map[A, B any](p Computation[A], f func(A) B) Computation[B] {
	return Bind(p, func(v A) Computation[B] { return Return(f(v)) })
}

// Sequential runs p1 then p2, discarding p1's result (spec.md §4.3:
// sequential(p1, p2) ≡ bind(p1, _ => p2)).
func Sequential[A, B any](p1 Computation[A], p2 Computation[B]) Computation[B] {
	return Bind(p1, func(A) Computation[B] { return p2 })
}

// Combine is Sequential specialized to the common computation-expression
// shape where the first statement produces no useful value.
func Combine[B any](p1 Computation[struct{}], p2 Computation[B]) Computation[B] {
	return Sequential(p1, p2)
}

// Ignore discards p's result.
func Ignore[T any](p Computation[T]) Computation[struct{}] {
	return Map(p, func(T) struct{} { return struct{}{} })
}

// TryFinally runs p, then runs fin on every exit path (success, exception,
// cancellation). If fin panics, that exception is delivered to the
// enclosing exception continuation — except when the exit path is
// cancellation, in which case cancellation wins and fin's panic is
// dropped (spec.md §4.3).
func TryFinally[T any](p Computation[T], fin func()) Computation[T] {
	return func(a *activation[T]) Signal {
		wrapped := &activation[T]{
			kont: func(v T) Signal {
				if ei := runProtected(fin); ei != nil {
					return a.aux.econt(ei)
				}
				return a.kont(v)
			},
			aux: &Aux{
				econt: func(ei *ExceptionInfo) Signal {
					if fei := runProtected(fin); fei != nil {
						return a.aux.econt(fei)
					}
					return a.aux.econt(ei)
				},
				ccont: func(cs *CancelSignal) Signal {
					runProtected(fin)
					return a.aux.ccont(cs)
				},
				token:  a.aux.token,
				holder: a.aux.holder,
				sc:     a.aux.sc,
			},
		}
		return p(wrapped)
	}
}

// TryWith runs p, routing any exception to h. h receives the preserved
// exception and returns the computation to continue with. Any exception
// raised by h flows to the outer exception continuation (spec.md §4.3).
func TryWith[T any](p Computation[T], h func(*ExceptionInfo) Computation[T]) Computation[T] {
	return func(a *activation[T]) Signal {
		wrapped := &activation[T]{
			kont: a.kont,
			aux: &Aux{
				econt: func(ei *ExceptionInfo) Signal {
					return protect(a.aux, func() Computation[T] { return h(ei) }, func(next Computation[T]) Signal {
						return hijackCheckThenCall(a.aux.holder.tr, next, a)
					})
				},
				ccont:  a.aux.ccont,
				token:  a.aux.token,
				holder: a.aux.holder,
				sc:     a.aux.sc,
			},
		}
		return p(wrapped)
	}
}

// Catch converts p into a computation that succeeds with an Either-shaped
// [Outcome] when p succeeds or raises: the exception continuation is
// replaced by a success carrying the error tag instead of propagating
// further. Cancellation of p still exits via the cancellation continuation.
func Catch[T any](p Computation[T]) Computation[Outcome[T]] {
	return func(a *activation[Outcome[T]]) Signal {
		wrapped := &activation[T]{
			kont: func(v T) Signal { return a.kont(Ok(v)) },
			aux: &Aux{
				econt: func(ei *ExceptionInfo) Signal { return a.kont(Err[T](ei)) },
				ccont:  a.aux.ccont,
				token:  a.aux.token,
				holder: a.aux.holder,
				sc:     a.aux.sc,
			},
		}
		return p(wrapped)
	}
}

// TryCancelled runs c, and if c exits via cancellation, runs comp
// afterward instead of propagating the cancellation continuation
// directly; any other outcome of c passes through untouched. This is the
// cancellation analogue of TryWith's exception handling (spec.md §6 names
// tryCancelled without detailing it further; SPEC_FULL.md §3 supplements
// this definition).
func TryCancelled[T any](c Computation[T], comp func(*CancelSignal) Computation[T]) Computation[T] {
	return func(a *activation[T]) Signal {
		wrapped := &activation[T]{
			kont: a.kont,
			aux: &Aux{
				econt: a.aux.econt,
				ccont: func(cs *CancelSignal) Signal {
					return protect(a.aux, func() Computation[T] { return comp(cs) }, func(next Computation[T]) Signal {
						return hijackCheckThenCall(a.aux.holder.tr, next, a)
					})
				},
				token:  a.aux.token,
				holder: a.aux.holder,
				sc:     a.aux.sc,
			},
		}
		return c(wrapped)
	}
}

// Disposer is implemented by resources usable with [Using].
type Disposer interface {
	Dispose() error
}

// Using runs f(r), guaranteeing r.Dispose() runs exactly once: on normal
// try/finally exit, and eagerly the instant the activation's token is
// cancelled (even if the body is blocked awaiting an external event and
// has not yet observed cancellation through its own continuations).
// Disposal is guarded by a [Latch] so the two triggers race safely
// (spec.md §4.3).
func Using[R Disposer, T any](r R, f func(R) Computation[T]) Computation[T] {
	return func(a *activation[T]) Signal {
		var gate Latch
		runDispose := func() {
			if gate.Fire() {
				if err := r.Dispose(); err != nil {
					logger().Debug("async: using: dispose error", errField(err))
				}
			}
		}
		reg := a.aux.token.Register(runDispose)
		body := TryFinally(f(r), func() {
			reg.Dispose()
			runDispose()
		})
		return body(a)
	}
}

// While repeatedly runs body while guard returns true. guard executes
// under the current continuation's panic protection (spec.md §4.3).
func While(guard func() bool, body Computation[struct{}]) Computation[struct{}] {
	return func(a *activation[struct{}]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			return protect(a.aux, func() Computation[struct{}] {
				if guard() {
					return Bind(body, func(struct{}) Computation[struct{}] { return While(guard, body) })
				}
				return Zero()
			}, func(next Computation[struct{}]) Signal {
				return hijackCheckThenCall(a.aux.holder.tr, next, a)
			})
		})
	}
}

// Iterator is the minimal sequence-traversal contract used by [For]: an
// explicit MoveNext/Current pair rather than Go's range-over-func, so
// callers can drive it with [Using] for deterministic disposal the way
// spec.md §4.3 describes ("using the sequence's iterator and a while over
// moveNext").
type Iterator[T any] interface {
	Disposer
	MoveNext() bool
	Current() T
}

// For iterates seq, running body(current) — wrapped in a fresh Delay —
// for each element, disposing the iterator when the loop exits via any
// path (spec.md §4.3).
func For[T any](seq Iterator[T], body func(T) Computation[struct{}]) Computation[struct{}] {
	return Using[Iterator[T]](seq, func(it Iterator[T]) Computation[struct{}] {
		return While(it.MoveNext, Delay(func() Computation[struct{}] {
			return body(it.Current())
		}))
	})
}

// SwitchToContext posts the remainder of the computation onto sc via a
// fresh trampoline. If sc is nil, it queues onto the default worker pool
// instead (spec.md §4.3).
func SwitchToContext(sc SyncContext) Computation[struct{}] {
	return func(a *activation[struct{}]) Signal {
		holder := a.aux.holder
		holder.postOrQueueWithTrampoline(sc, func() Signal {
			a.aux.sc = sc
			return a.kont(struct{}{})
		})
		return done
	}
}

// errField is a tiny indirection around zap.Error so call sites that only
// need to log a single error field don't each spell out the zap import.
func errField(err error) zap.Field { return zap.Error(err) }
