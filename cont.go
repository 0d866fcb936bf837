// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

// Signal is the completion marker returned by invoking a [Computation].
// It carries no information of its own; its purpose is to mark at the
// type level that invoking a computation belongs in tail position. The Go
// compiler does not reject a discarded Signal, so this is a convention:
// every combinator that invokes a nested computation or a continuation
// returns that call's Signal directly rather than ignore it.
type Signal struct{}

// done is the single value of type Signal; computations and continuations
// return it.
var done = Signal{}

// Computation represents a deferred, non-blocking computation producing a
// value of type T. Invoking it with an activation runs zero or more
// synchronous steps and either invokes one of the activation's three
// continuations, or registers the activation to be resumed later by some
// external event (a timer, a child computation, an I/O callback).
//
// Computation values are opaque: construct them with [Return], [Delay],
// [Bind], and the other primitives in this package rather than by hand.
type Computation[T any] func(a *activation[T]) Signal

// outcomeKind tags the three ways a computation can settle.
type outcomeKind uint8

const (
	outcomeOK outcomeKind = iota
	outcomeErr
	outcomeCanceled
)

// Outcome is a discriminated result of running a [Computation] to
// completion: exactly one of its three states holds.
type Outcome[T any] struct {
	kind   outcomeKind
	value  T
	err    *ExceptionInfo
	cancel *CancelSignal
}

// Ok reports a successful outcome carrying v.
func Ok[T any](v T) Outcome[T] { return Outcome[T]{kind: outcomeOK, value: v} }

// Err reports a failed outcome carrying a preserved exception.
func Err[T any](ei *ExceptionInfo) Outcome[T] { return Outcome[T]{kind: outcomeErr, err: ei} }

// Canceled reports a cancelled outcome carrying the cancellation signal.
func Canceled[T any](cs *CancelSignal) Outcome[T] {
	return Outcome[T]{kind: outcomeCanceled, cancel: cs}
}

// IsOK reports whether the outcome completed successfully.
func (o Outcome[T]) IsOK() bool { return o.kind == outcomeOK }

// IsErr reports whether the outcome completed with an exception.
func (o Outcome[T]) IsErr() bool { return o.kind == outcomeErr }

// IsCanceled reports whether the outcome completed via cancellation.
func (o Outcome[T]) IsCanceled() bool { return o.kind == outcomeCanceled }

// Value returns the success value and true, or the zero value and false.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.kind == outcomeOK
}

// Exception returns the preserved exception and true, or nil and false.
func (o Outcome[T]) Exception() (*ExceptionInfo, bool) {
	return o.err, o.kind == outcomeErr
}

// Cancellation returns the cancel signal and true, or nil and false.
func (o Outcome[T]) Cancellation() (*CancelSignal, bool) {
	return o.cancel, o.kind == outcomeCanceled
}

// Option is the lightweight "maybe a value" carrier [Choice] (spec.md
// §4.9) operates over: each child computation yields Option[T], and the
// combinator selects the first Some.
type Option[T any] struct {
	value T
	some  bool
}

// Some wraps v as a present option value.
func Some[T any](v T) Option[T] { return Option[T]{value: v, some: true} }

// None is the absent option value.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the wrapped value and true, or the zero value and false.
func (o Option[T]) Get() (T, bool) { return o.value, o.some }

// IsSome reports whether the option carries a value.
func (o Option[T]) IsSome() bool { return o.some }

// deliverOutcome dispatches a settled Outcome to the matching one of a's
// three continuations. Shared by every combinator that bridges an
// external or child completion back into the computation model
// (startchild.go, bridge.go's AwaitTask).
func deliverOutcome[T any](a *activation[T], o Outcome[T]) Signal {
	if v, ok := o.Value(); ok {
		return hijackCheckThenCall(a.aux.holder.tr, a.kont, v)
	}
	if ei, ok := o.Exception(); ok {
		return a.aux.econt(ei)
	}
	cs, _ := o.Cancellation()
	return a.aux.ccont(cs)
}
