// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

// Builder wraps a [Computation] to offer method-chaining syntax over the
// free-function primitives in this package (SPEC_FULL.md §2 Builder
// surface: "user-facing constructors that forward to primitive
// combinators"). Go methods cannot introduce a type parameter beyond
// their receiver's, so operations whose result type the caller chooses
// (Bind, Map) are package-level functions taking a Builder rather than
// methods; the rest, including Ignore and Catch, are methods.
type Builder[T any] struct {
	c Computation[T]
}

// Of wraps v as a builder that immediately succeeds with it.
func Of[T any](v T) Builder[T] {
	return Builder[T]{c: Return(v)}
}

// FromComputation wraps an existing computation.
func FromComputation[T any](c Computation[T]) Builder[T] {
	return Builder[T]{c: c}
}

// Computation unwraps b back into a plain [Computation], for passing to
// combinators that are not themselves exposed as Builder methods
// ([Parallel], [Choice], [StartChild], and the bridges in bridge.go).
func (b Builder[T]) Computation() Computation[T] {
	return b.c
}

// Delayed builds a Builder whose underlying computation is not
// constructed until invoked (see [Delay]).
func Delayed[T any](f func() Computation[T]) Builder[T] {
	return Builder[T]{c: Delay(f)}
}

// TryFinally runs fin on every exit path of b (see [TryFinally]).
func (b Builder[T]) TryFinally(fin func()) Builder[T] {
	return Builder[T]{c: TryFinally(b.c, fin)}
}

// TryWith routes any exception from b to h (see [TryWith]).
func (b Builder[T]) TryWith(h func(*ExceptionInfo) Computation[T]) Builder[T] {
	return Builder[T]{c: TryWith(b.c, h)}
}

// TryCancelled routes cancellation from b to comp (see [TryCancelled]).
func (b Builder[T]) TryCancelled(comp func(*CancelSignal) Computation[T]) Builder[T] {
	return Builder[T]{c: TryCancelled(b.c, comp)}
}

// Ignore discards b's result (see [Ignore]).
func (b Builder[T]) Ignore() Builder[struct{}] {
	return Builder[struct{}]{c: Ignore(b.c)}
}

// Catch converts b into a Builder that succeeds with an Either-shaped
// [Outcome] on success or exception; cancellation still propagates (see
// [Catch]).
func (b Builder[T]) Catch() Builder[Outcome[T]] {
	return Builder[Outcome[T]]{c: Catch(b.c)}
}

// Then sequences b with next, discarding b's result (see [Sequential]).
func (b Builder[T]) Then(next Builder[T]) Builder[T] {
	return Builder[T]{c: Sequential(b.c, next.c)}
}

// Run blocks the calling goroutine until b settles (see
// [RunSynchronously]).
func (b Builder[T]) Run(opts ...RunOption) (T, error) {
	return RunSynchronously(b.c, opts...)
}

// Start queues b onto the default worker pool (see [Start]).
func (b Builder[T]) Start(opts ...StartOption) {
	Start(b.c, opts...)
}

// StartAsTask queues b onto the default worker pool and returns its
// [Task] handle (see [StartAsTask]).
func (b Builder[T]) StartAsTask(opts ...StartOption) *Task[T] {
	return StartAsTask(b.c, opts...)
}

// BindWith sequences b with f, obtaining the next computation from b's
// result (see [Bind]). A package-level function rather than a method
// since it introduces the new type parameter B.
func BindWith[A, B any](b Builder[A], f func(A) Computation[B]) Builder[B] {
	return Builder[B]{c: Bind(b.c, f)}
}

// MapWith transforms b's result with a pure function (see [Map]).
func MapWith[A, B any](b Builder[A], f func(A) B) Builder[B] {
	return Builder[B]{c: Map(b.c, f)}
}
