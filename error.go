// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"sync"
)

// ExceptionInfo pairs a raised value with the capture information needed
// to faithfully re-raise it later: the original error (or wrapped panic
// value) plus the stack trace captured at the point of the panic.
//
// Grounded on spec.md §3/§9 "ExceptionInfo association": a process-wide
// weak association from raw exception values to preserved capture info,
// so that handing the same error back across a boundary that strips this
// information (e.g. a plain `error` return) can still be restored via
// [LookupExceptionInfo].
type ExceptionInfo struct {
	Err   error
	Stack string

	// original is the raw value recover() produced; usually equal to Err
	// but preserved separately in case it was not already an error.
	original any
}

// Error implements the error interface so *ExceptionInfo can itself be
// raised, returned, or compared like any other error.
func (ei *ExceptionInfo) Error() string {
	if ei == nil || ei.Err == nil {
		return "async: nil exception"
	}
	return ei.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is/errors.As.
func (ei *ExceptionInfo) Unwrap() error { return ei.Err }

var exceptionRegistry sync.Map // error -> *ExceptionInfo

// registerExceptionFinalizer arranges for err's exceptionRegistry entry to
// be evicted once err itself becomes unreachable everywhere else (spec.md
// §3/§9: the capture-site association is required to be weak-keyed, not a
// permanent map, so a long-running process raising many distinct errors
// does not accumulate one *ExceptionInfo per error forever). Grounded on
// the same runtime.SetFinalizer pattern as inprocgrpc's
// clientStreamAdapter finalizer and michaelmacinnis-oh's Pipe finalizer
// in the retrieval pack — the closest stdlib equivalent of a weak map
// without a third-party weak-reference dependency.
//
// runtime.SetFinalizer only accepts an object whose dynamic type is a
// pointer. Errors whose dynamic type is not a pointer (a value-type error
// implementation) cannot be finalized this way and are left registered
// for the process lifetime, same as before; this is rare in practice
// (errors.New, fmt.Errorf, and essentially every user-defined error type
// satisfy the pointer requirement).
func registerExceptionFinalizer(err error) {
	if reflect.ValueOf(err).Kind() != reflect.Ptr {
		return
	}
	runtime.SetFinalizer(err, func(finalized any) {
		exceptionRegistry.Delete(finalized)
	})
}

// captureException wraps a recovered panic value into an *ExceptionInfo
// with a preserved stack trace, and records the association so a later
// re-raise of the same error value can recover its original capture site
// via [LookupExceptionInfo].
func captureException(v any) *ExceptionInfo {
	var err error
	switch e := v.(type) {
	case error:
		err = e
	default:
		err = fmt.Errorf("async: panic: %v", v)
	}
	ei := &ExceptionInfo{Err: err, Stack: string(debug.Stack()), original: v}
	exceptionRegistry.Store(err, ei)
	registerExceptionFinalizer(err)
	return ei
}

// newExceptionInfo wraps a plain error (rather than a recovered panic)
// into an *ExceptionInfo, e.g. an error passed to FromContinuations'
// exception callback, an error returned by a begin/end pair's end, or
// startchild.go's timeout error. It does not record the error in
// exceptionRegistry.
func newExceptionInfo(err error) *ExceptionInfo {
	return &ExceptionInfo{Err: err, Stack: string(debug.Stack()), original: err}
}

// LookupExceptionInfo restores the capture info for err if it was
// previously captured by this package, or reports false.
func LookupExceptionInfo(err error) (*ExceptionInfo, bool) {
	v, ok := exceptionRegistry.Load(err)
	if !ok {
		return nil, false
	}
	return v.(*ExceptionInfo), true
}

// runProtected invokes f and, if it panics, returns the captured
// exception info; otherwise returns nil. This is the single point through
// which every combinator that calls into user code routes synchronous
// panics, per spec.md §4.3's blanket rule that user code invocations must
// never let a panic escape through the trampoline.
func runProtected(f func()) (ei *ExceptionInfo) {
	defer func() {
		if r := recover(); r != nil {
			ei = captureException(r)
		}
	}()
	f()
	return nil
}

// protect runs thunk under panic capture; on panic it delivers the
// exception via aux.econt, otherwise it hands the produced computation to
// onOK. This is the Go realization of spec.md §4.3's "protect" helper
// used by bind, delay, tryWith's handler invocation, and others.
func protect[B any](aux *Aux, thunk func() Computation[B], onOK func(Computation[B]) Signal) Signal {
	var next Computation[B]
	if ei := runProtected(func() { next = thunk() }); ei != nil {
		return aux.econt(ei)
	}
	return onOK(next)
}

// CancelError is the error value [RunSynchronously] and [Task.Wait] raise
// when a computation settles via cancellation rather than success or
// exception (spec.md §7 error kind (b)).
type CancelError struct {
	Signal *CancelSignal
}

// Error implements the error interface.
func (e *CancelError) Error() string {
	return "async: computation canceled"
}

// ErrTimeout is wrapped into the error a synchronous boundary raises when
// its deadline elapses before the underlying computation settles
// (spec.md §7 error kind (c): RunSynchronously with a timeout, StartChild
// with a timeout).
var ErrTimeout = errors.New("async: operation timed out")
