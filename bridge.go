// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"sync"
	"time"
)

// FromContinuations lifts an externally-driven callback-style API into a
// computation (spec.md §4.7). callback is invoked synchronously with
// three terminating functions; exactly one of them must be invoked
// exactly once. Invoking more than one, or any one more than once, is a
// hard failure. If a terminating function is invoked synchronously
// within callback's own dynamic extent, the resulting continuation is
// parked and invoked in tail position immediately after callback
// returns, rather than recursively from inside callback — this bounds
// stack growth and matches the spec's own tail-call requirement. A
// terminating function invoked later (from another goroutine) is
// resumed via the activation's captured sync context, or queued on the
// default pool if none was captured.
func FromContinuations[T any](callback func(kSucc func(T), kExn func(error), kCancel func(*CancelSignal))) Computation[T] {
	return func(a *activation[T]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			var gate Latch
			var mu sync.Mutex
			running := true
			var parked func() Signal
			const reinvoked = "async: fromContinuations: continuation invoked more than once"

			finish := func(f func() Signal) {
				if !gate.Fire() {
					panic(reinvoked)
				}
				mu.Lock()
				if running {
					parked = f
					mu.Unlock()
					return
				}
				mu.Unlock()
				a.aux.holder.postOrQueueWithTrampoline(a.aux.sc, f)
			}

			kSucc := func(v T) {
				finish(func() Signal { return hijackCheckThenCall(a.aux.holder.tr, a.kont, v) })
			}
			kExn := func(err error) {
				finish(func() Signal { return a.aux.econt(newExceptionInfo(err)) })
			}
			kCancel := func(cs *CancelSignal) {
				finish(func() Signal { return a.aux.ccont(cs) })
			}

			if ei := runProtected(func() { callback(kSucc, kExn, kCancel) }); ei != nil {
				if ei.original == reinvoked {
					// A second terminating call made synchronously inside
					// callback is a hard failure, not a user exception.
					panic(reinvoked)
				}
				if gate.Fire() {
					return a.aux.econt(ei)
				}
				// callback already delivered via one of the three
				// functions before panicking: first delivery wins, the
				// panic is dropped.
			}

			mu.Lock()
			running = false
			p := parked
			parked = nil
			mu.Unlock()
			if p != nil {
				return p()
			}
			return done
		})
	}
}

// Sleep suspends the computation for d, or until the activation's token
// is cancelled, whichever comes first (spec.md §4.10). Both the timer
// and the cancellation registration are guarded by a shared [Latch] so
// only the first to fire acts.
func Sleep(d time.Duration) Computation[struct{}] {
	return func(a *activation[struct{}]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			var gate Latch
			var reg *Registration
			timer := time.AfterFunc(d, func() {
				if !gate.Fire() {
					return
				}
				if reg != nil {
					reg.Dispose()
				}
				a.aux.holder.postOrQueueWithTrampoline(a.aux.sc, func() Signal {
					return hijackCheckThenCall(a.aux.holder.tr, a.kont, struct{}{})
				})
			})
			reg = a.aux.token.Register(func() {
				if !gate.Fire() {
					return
				}
				timer.Stop()
				a.aux.holder.postOrQueueWithTrampoline(a.aux.sc, func() Signal {
					return a.aux.ccont(newCancelSignal(a.aux.token))
				})
			})
			return done
		})
	}
}

// WaitHandle is a host-provided signalling channel, closed exactly once
// when signalled (spec.md Glossary "wait handle" realized without a
// dedicated type: any `<-chan struct{}` — including [ResultCell]'s own
// wait handle and [IOResult.WaitHandle] — satisfies it).
type WaitHandle = <-chan struct{}

// waitConfig collects the functional options accepted by
// [AwaitWaitHandle] and [AwaitIAsyncResult].
type waitConfig struct {
	timeout    time.Duration
	hasTimeout bool
}

// WaitOption configures an [AwaitWaitHandle] call.
type WaitOption func(*waitConfig)

// WithWaitTimeout bounds how long AwaitWaitHandle waits before yielding
// false. A zero duration polls wh immediately without blocking (spec.md
// §4.10: "if timeout is 0, poll immediately").
func WithWaitTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) { c.timeout, c.hasTimeout = d, true }
}

func resolveWaitOptions(opts []WaitOption) waitConfig {
	var cfg waitConfig
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// AwaitWaitHandle succeeds with true once wh is signalled, or false if
// the optional timeout elapses first (spec.md §4.10). A zero-valued
// timeout polls wh synchronously rather than registering a wait.
// Otherwise a monitor goroutine races wh against the timer and the
// activation's cancellation, the first of which to fire wins via a
// [Latch] and the others are disposed.
func AwaitWaitHandle(wh WaitHandle, opts ...WaitOption) Computation[bool] {
	return func(a *activation[bool]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			cfg := resolveWaitOptions(opts)
			if cfg.hasTimeout && cfg.timeout == 0 {
				select {
				case <-wh:
					return hijackCheckThenCall(a.aux.holder.tr, a.kont, true)
				default:
					return hijackCheckThenCall(a.aux.holder.tr, a.kont, false)
				}
			}

			var gate Latch
			var timer *time.Timer
			if cfg.hasTimeout {
				timer = time.NewTimer(cfg.timeout)
			}
			stop := make(chan struct{})
			var reg *Registration

			deliver := func(signalled bool) {
				if !gate.Fire() {
					return
				}
				close(stop)
				if timer != nil {
					timer.Stop()
				}
				if reg != nil {
					reg.Dispose()
				}
				a.aux.holder.postOrQueueWithTrampoline(a.aux.sc, func() Signal {
					return hijackCheckThenCall(a.aux.holder.tr, a.kont, signalled)
				})
			}

			go func() {
				if timer != nil {
					select {
					case <-wh:
						deliver(true)
					case <-timer.C:
						deliver(false)
					case <-stop:
					}
					return
				}
				select {
				case <-wh:
					deliver(true)
				case <-stop:
				}
			}()

			reg = a.aux.token.Register(func() {
				if !gate.Fire() {
					return
				}
				close(stop)
				if timer != nil {
					timer.Stop()
				}
				a.aux.holder.postOrQueueWithTrampoline(a.aux.sc, func() Signal {
					return a.aux.ccont(newCancelSignal(a.aux.token))
				})
			})
			return done
		})
	}
}

// IOResult is the ambient asynchronous-result contract [FromBeginEnd]
// and [AsBeginEnd] exchange (spec.md §6 asBeginEnd triple; SPEC_FULL.md
// §3 supplement): IsCompleted, CompletedSynchronously, WaitHandle, and
// AsyncState mirror the classic begin/end-pair IAsyncResult shape.
type IOResult struct {
	asyncState   any
	completed    VolatileBarrier
	syncComplete bool
	wh           chan struct{}
	payload      any
}

// IsCompleted reports whether the operation has finished.
func (r *IOResult) IsCompleted() bool { return r.completed.Load() }

// CompletedSynchronously reports whether begin itself completed the
// operation before returning.
func (r *IOResult) CompletedSynchronously() bool { return r.syncComplete }

// WaitHandle returns a channel closed once the operation completes.
func (r *IOResult) WaitHandle() WaitHandle { return r.wh }

// AsyncState returns the opaque state value passed to begin.
func (r *IOResult) AsyncState() any { return r.asyncState }

// fromBeginEndCore is the shared implementation behind [FromBeginEnd]
// and its arity-1/2/3 variants (spec.md §4.10, §6). begin is invoked
// with a callback that, on completion, must invoke its *IOResult
// argument; end extracts the final value or error from a completed
// *IOResult. If begin's result reports synchronous completion, end is
// called directly and the result cell is never consulted (spec.md
// §4.10: "if the IO reports synchronous completion, call end directly
// and skip the cell").
func fromBeginEndCore[T any](begin func(callback func(*IOResult), state any) *IOResult, end func(*IOResult) (T, error), cancel func(*IOResult)) Computation[T] {
	return func(a *activation[T]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			cell := NewResultCell[Outcome[T]]()
			var gate Latch
			var reg *Registration

			runEnd := func(iar *IOResult) Outcome[T] {
				var v T
				var callErr error
				if ei := runProtected(func() { v, callErr = end(iar) }); ei != nil {
					return Err[T](ei)
				}
				if callErr != nil {
					return Err[T](newExceptionInfo(callErr))
				}
				return Ok(v)
			}

			iar := begin(func(completed *IOResult) {
				if !gate.Fire() {
					return
				}
				if reg != nil {
					reg.Dispose()
				}
				cell.registerResult(runEnd(completed), true)
			}, nil)

			if iar.CompletedSynchronously() && gate.Fire() {
				return deliverOutcome(a, runEnd(iar))
			}

			reg = a.aux.token.Register(func() {
				if !gate.Fire() {
					return
				}
				if cancel != nil {
					cancel(iar)
				}
				cell.registerResult(Canceled[T](newCancelSignal(a.aux.token)), true)
			})

			inner := cell.awaitResultNoDirectCancelOrTimeout()
			wrapped := &activation[Outcome[T]]{
				aux:  a.aux,
				kont: func(o Outcome[T]) Signal { return deliverOutcome(a, o) },
			}
			return inner(wrapped)
		})
	}
}

// FromBeginEnd is the arity-0 form: begin receives only the completion
// callback and the opaque state value (spec.md §4.10, §6).
func FromBeginEnd[T any](begin func(callback func(*IOResult), state any) *IOResult, end func(*IOResult) (T, error), cancel func(*IOResult)) Computation[T] {
	return fromBeginEndCore(begin, end, cancel)
}

// FromBeginEnd1 forwards one leading argument into begin (spec.md §6
// "arity-1/2/3 variants").
func FromBeginEnd1[A1, T any](arg1 A1, begin func(A1, func(*IOResult), any) *IOResult, end func(*IOResult) (T, error), cancel func(*IOResult)) Computation[T] {
	return fromBeginEndCore(func(callback func(*IOResult), state any) *IOResult {
		return begin(arg1, callback, state)
	}, end, cancel)
}

// FromBeginEnd2 forwards two leading arguments into begin.
func FromBeginEnd2[A1, A2, T any](arg1 A1, arg2 A2, begin func(A1, A2, func(*IOResult), any) *IOResult, end func(*IOResult) (T, error), cancel func(*IOResult)) Computation[T] {
	return fromBeginEndCore(func(callback func(*IOResult), state any) *IOResult {
		return begin(arg1, arg2, callback, state)
	}, end, cancel)
}

// FromBeginEnd3 forwards three leading arguments into begin.
func FromBeginEnd3[A1, A2, A3, T any](arg1 A1, arg2 A2, arg3 A3, begin func(A1, A2, A3, func(*IOResult), any) *IOResult, end func(*IOResult) (T, error), cancel func(*IOResult)) Computation[T] {
	return fromBeginEndCore(func(callback func(*IOResult), state any) *IOResult {
		return begin(arg1, arg2, arg3, callback, state)
	}, end, cancel)
}

// asBeginEndPayload carries AsBeginEnd's bookkeeping inside the opaque
// IOResult.payload field (IOResult itself cannot be generic, since it is
// shared by every arity/type instantiation of FromBeginEnd).
type asBeginEndPayload[T any] struct {
	task   *Task[T]
	source *CancellationSource
}

// AsBeginEnd converts a computation into a begin/end/cancel triple
// satisfying the ambient asynchronous-result contract, the inverse of
// [FromBeginEnd] (spec.md §6, §8 round-trip property:
// `fromBeginEnd(asBeginEnd(c)) ≡ c`). Each call to begin starts c on the
// default worker pool under a private cancellation source that cancel
// can later trigger.
func AsBeginEnd[T any](c Computation[T]) (
	begin func(callback func(*IOResult), state any) *IOResult,
	end func(*IOResult) (T, error),
	cancel func(*IOResult),
) {
	begin = func(callback func(*IOResult), state any) *IOResult {
		src := NewCancellationSource()
		iar := &IOResult{asyncState: state, wh: make(chan struct{})}
		task := StartAsTask(c, WithStartToken(src.Token()))
		iar.payload = asBeginEndPayload[T]{task: task, source: src}
		go func() {
			<-task.Done()
			iar.completed.Store()
			close(iar.wh)
			if callback != nil {
				callback(iar)
			}
		}()
		return iar
	}
	end = func(iar *IOResult) (T, error) {
		<-iar.wh
		return iar.payload.(asBeginEndPayload[T]).task.Wait()
	}
	cancel = func(iar *IOResult) {
		iar.payload.(asBeginEndPayload[T]).source.Cancel()
	}
	return
}

// AwaitIAsyncResult awaits an already-started *[IOResult], succeeding
// with true once it completes or false if the optional timeout elapses
// first (spec.md §6). It is [AwaitWaitHandle] specialized to an
// IOResult's own wait handle.
func AwaitIAsyncResult(iar *IOResult, opts ...WaitOption) Computation[bool] {
	return AwaitWaitHandle(iar.WaitHandle(), opts...)
}

// EventSource models a host-provided add/remove-handler event (spec.md
// §4.10 awaitEvent): Subscribe registers a handler to be invoked at most
// once with the event's payload, and returns a function that removes it.
type EventSource[T any] interface {
	Subscribe(handler func(T)) (unsubscribe func())
}

// AwaitEvent succeeds with the next value ev delivers, or invokes
// cancel (if non-nil) and exits via cancellation if the activation's
// token fires first (spec.md §4.10). Whichever of the event firing or
// the cancellation registration happens first removes the handler and
// wins via a [Latch]; the other is a no-op.
func AwaitEvent[T any](ev EventSource[T], cancel func()) Computation[T] {
	return func(a *activation[T]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			cell := NewResultCell[Outcome[T]]()
			var gate Latch
			var unsubscribe func()
			var reg *Registration

			unsubscribe = ev.Subscribe(func(v T) {
				if !gate.Fire() {
					return
				}
				if unsubscribe != nil {
					unsubscribe()
				}
				if reg != nil {
					reg.Dispose()
				}
				cell.registerResult(Ok(v), true)
			})

			reg = a.aux.token.Register(func() {
				if !gate.Fire() {
					return
				}
				if unsubscribe != nil {
					unsubscribe()
				}
				if cancel != nil {
					cancel()
				}
				cell.registerResult(Canceled[T](newCancelSignal(a.aux.token)), true)
			})

			inner := cell.awaitResultNoDirectCancelOrTimeout()
			wrapped := &activation[Outcome[T]]{
				aux:  a.aux,
				kont: func(o Outcome[T]) Signal { return deliverOutcome(a, o) },
			}
			return inner(wrapped)
		})
	}
}

// AwaitTask bridges an externally-completed [Task] into the computation
// model (spec.md §4.10): it registers as a waiter on the task's own
// result cell rather than blocking a goroutine. cancellationAsException
// selects whether the task settling via cancellation is routed to the
// cancellation continuation (false) or the exception continuation as a
// *[CancelError]-wrapped [ExceptionInfo] (true) — matching the spec's
// "boolean parameter selects whether task-cancellation is routed to the
// cancellation or exception continuation".
func AwaitTask[T any](task *Task[T], cancellationAsException bool) Computation[T] {
	return func(a *activation[T]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			inner := task.cell.awaitResultNoDirectCancelOrTimeout()
			wrapped := &activation[Outcome[T]]{
				aux: a.aux,
				kont: func(o Outcome[T]) Signal {
					if cs, isCancel := o.Cancellation(); isCancel && cancellationAsException {
						return a.aux.econt(newExceptionInfo(&CancelError{Signal: cs}))
					}
					return deliverOutcome(a, o)
				},
			}
			return inner(wrapped)
		})
	}
}

// CancelHandle is the disposable [OnCancel] returns: disposing it before
// the token cancels prevents the registered callback from ever running.
type CancelHandle struct {
	gate Latch
	reg  *Registration
}

// Dispose unregisters the cancellation callback. Safe to call more than
// once; racing with the callback itself is resolved by a shared [Latch]
// (spec.md §4.10: "disposal races the cancellation handler via a
// latch").
func (h *CancelHandle) Dispose() error {
	if h.gate.Fire() {
		h.reg.Dispose()
	}
	return nil
}

// OnCancel succeeds with a [CancelHandle] that invokes f if the
// activation's token is cancelled before the handle is disposed
// (spec.md §4.10).
func OnCancel(f func()) Computation[*CancelHandle] {
	return func(a *activation[*CancelHandle]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			h := &CancelHandle{}
			h.reg = a.aux.token.Register(func() {
				if h.gate.Fire() {
					f()
				}
			})
			return hijackCheckThenCall(a.aux.holder.tr, a.kont, h)
		})
	}
}

// SwitchToThreadPool migrates the remainder of the computation onto the
// default worker pool (spec.md §6).
func SwitchToThreadPool() Computation[struct{}] {
	return func(a *activation[struct{}]) Signal {
		a.aux.holder.queueWorkItemWithTrampoline(func() Signal {
			a.aux.sc = nil
			return a.kont(struct{}{})
		})
		return done
	}
}

// SwitchToNewThread migrates the remainder of the computation onto a
// freshly started dedicated goroutine (spec.md §6).
func SwitchToNewThread() Computation[struct{}] {
	return func(a *activation[struct{}]) Signal {
		a.aux.holder.startThreadWithTrampoline(func() Signal {
			a.aux.sc = nil
			return a.kont(struct{}{})
		})
		return done
	}
}
