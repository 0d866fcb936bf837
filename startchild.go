// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"fmt"
	"time"
)

// childConfig collects the functional options accepted by [StartChild].
type childConfig struct {
	timeout    time.Duration
	hasTimeout bool
}

// ChildOption configures a [StartChild] call.
type ChildOption func(*childConfig)

// WithChildTimeout bounds how long the computation StartChild returns may
// wait for the child before raising an error wrapping [ErrTimeout]
// (spec.md §4.10).
func WithChildTimeout(d time.Duration) ChildOption {
	return func(c *childConfig) { c.timeout, c.hasTimeout = d, true }
}

func resolveChildOptions(opts []ChildOption) childConfig {
	var cfg childConfig
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// StartChild eagerly queues c as a cancellation-linked child of the
// activation it runs under, and succeeds with a second computation that
// awaits the child's result (spec.md §4.10; this mirrors the
// `let! child = startChild c` / `let! v = child` idiom the spec's source
// family uses). The child is queued the instant StartChild's own
// computation is invoked — not when the returned await-computation is
// later invoked — so the child makes progress concurrently with whatever
// the caller does between starting it and awaiting it.
//
// Grounded on unkn0wn-root-go-async/task.go's parent/child
// context.WithCancel linking, adapted to route through a [ResultCell]
// instead of a bare channel so a timed await can race the result against
// a timer without blocking a goroutine per call.
func StartChild[T any](c Computation[T], opts ...ChildOption) Computation[Computation[T]] {
	return func(a *activation[Computation[T]]) Signal {
		return checkCancellationOr(a.aux, func() Signal {
			cfg := resolveChildOptions(opts)
			sub := LinkSource(a.aux.token)
			cell := NewResultCell[Outcome[T]]()
			childHolder := newTrampolineHolder()
			childAux := &Aux{
				econt: func(ei *ExceptionInfo) Signal {
					cell.registerResult(Err[T](ei), true)
					return done
				},
				ccont: func(cs *CancelSignal) Signal {
					cell.registerResult(Canceled[T](cs), true)
					return done
				},
				token:  sub.Token(),
				holder: childHolder,
			}
			childA := &activation[T]{
				aux: childAux,
				kont: func(v T) Signal {
					cell.registerResult(Ok(v), true)
					return done
				},
			}
			childHolder.queueWorkItemWithTrampoline(func() Signal { return c(childA) })

			await := childAwait(cell, sub, cfg.timeout, cfg.hasTimeout)
			return hijackCheckThenCall(a.aux.holder.tr, a.kont, await)
		})
	}
}

// childAwait builds the computation StartChild hands back: it registers
// as a waiter on cell and, if hasTimeout, races that registration against
// a timer. Whichever fires first wins via a [Latch]; the loser's outcome
// (a late cell fill, or a timer that fires after the cell already
// delivered) is discarded. The timeout path cancels sub so the child
// itself observes cancellation rather than running unobserved.
func childAwait[T any](cell *ResultCell[Outcome[T]], sub *CancellationSource, timeout time.Duration, hasTimeout bool) Computation[T] {
	return func(a *activation[T]) Signal {
		inner := cell.awaitResultNoDirectCancelOrTimeout()

		if !hasTimeout {
			wrapped := &activation[Outcome[T]]{
				aux: a.aux,
				kont: func(o Outcome[T]) Signal {
					sub.Close()
					return deliverOutcome(a, o)
				},
			}
			return inner(wrapped)
		}

		var gate Latch
		timer := time.AfterFunc(timeout, func() {
			if !gate.Fire() {
				return
			}
			sub.Cancel()
			ei := newExceptionInfo(fmt.Errorf("async: startChild: %w after %s", ErrTimeout, timeout))
			a.aux.holder.postOrQueueWithTrampoline(a.aux.sc, func() Signal { return a.aux.econt(ei) })
		})
		wrapped := &activation[Outcome[T]]{
			aux: a.aux,
			kont: func(o Outcome[T]) Signal {
				if !gate.Fire() {
					return done
				}
				timer.Stop()
				sub.Close()
				return deliverOutcome(a, o)
			},
		}
		return inner(wrapped)
	}
}
