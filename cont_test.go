// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"testing"

	"code.hybscloud.com/async"
)

func TestOutcomeOk(t *testing.T) {
	o := async.Ok(7)
	if !o.IsOK() || o.IsErr() || o.IsCanceled() {
		t.Fatalf("expected OK outcome")
	}
	v, ok := o.Value()
	if !ok || v != 7 {
		t.Fatalf("got (%d, %v), want (7, true)", v, ok)
	}
}

func TestOutcomeErr(t *testing.T) {
	_, err := async.RunSynchronously(async.Delay(func() async.Computation[int] {
		panic("boom")
	}))
	if err == nil {
		t.Fatalf("expected an error")
	}
	ei, ok := err.(*async.ExceptionInfo)
	if !ok {
		t.Fatalf("expected *ExceptionInfo, got %T", err)
	}
	if ei.Error() != "async: panic: boom" {
		t.Fatalf("unexpected message: %q", ei.Error())
	}
}

func TestOptionSomeNone(t *testing.T) {
	s := async.Some(3)
	if !s.IsSome() {
		t.Fatalf("expected Some")
	}
	v, ok := s.Get()
	if !ok || v != 3 {
		t.Fatalf("got (%d, %v)", v, ok)
	}

	n := async.None[int]()
	if n.IsSome() {
		t.Fatalf("expected None")
	}
	if _, ok := n.Get(); ok {
		t.Fatalf("expected Get to report false on None")
	}
}
