// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"errors"
	"testing"
	"time"
)

var errTestBeginEnd = errors.New("begin/end test failure")

func TestTrampolineHijackAfterThreshold(t *testing.T) {
	tr := &trampoline{}
	for i := 0; i < int(hijackThreshold.Load())-1; i++ {
		if tr.incrementBindCount() {
			t.Fatalf("hijacked early at bind %d", i)
		}
	}
	if !tr.incrementBindCount() {
		t.Fatalf("expected hijack at threshold")
	}
}

func TestTrampolineSetPanicsOnDoubleStore(t *testing.T) {
	tr := &trampoline{}
	tr.set(func() Signal { return done })
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double set")
		}
	}()
	tr.set(func() Signal { return done })
}

func TestTrampolineExecuteDrainsStored(t *testing.T) {
	tr := &trampoline{}
	var order []int
	sig := tr.execute(func() Signal {
		order = append(order, 1)
		tr.set(func() Signal {
			order = append(order, 2)
			return done
		})
		return done
	})
	if sig != done {
		t.Fatalf("expected done signal")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected drain order: %v", order)
	}
}

func TestCheckCancellationOrAlreadyCancelled(t *testing.T) {
	src := NewCancellationSource()
	src.Cancel()
	aux := &Aux{
		ccont: func(cs *CancelSignal) Signal { return done },
		token: src.Token(),
	}
	called := false
	sig := checkCancellationOr(aux, func() Signal {
		called = true
		return done
	})
	if called {
		t.Fatalf("onProceed must not run when token already cancelled")
	}
	if sig != done {
		t.Fatalf("expected done signal from ccont")
	}
}

func TestHijackCheckThenCallTailCallsBeforeThreshold(t *testing.T) {
	tr := &trampoline{}
	called := false
	hijackCheckThenCall(tr, func(v int) Signal {
		called = true
		return done
	}, 7)
	if !called {
		t.Fatalf("expected direct tail call below threshold")
	}
}

func TestResultCellMultiWaiterFanOut(t *testing.T) {
	cell := NewResultCell[int]()
	const n = 5
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		inner := cell.awaitResultNoDirectCancelOrTimeout()
		// Each waiter carries its own holder, as every real call site does
		// (a holder is never safely shared across concurrently-resumable
		// waiters — see parallel.go/choice.go/startchild.go's per-child
		// holder discipline).
		a := &activation[int]{
			aux:  &Aux{holder: newTrampolineHolder()},
			kont: func(v int) Signal { results <- v; return done },
		}
		inner(a)
	}
	cell.registerResult(42, true)
	for i := 0; i < n; i++ {
		select {
		case v := <-results:
			if v != 42 {
				t.Fatalf("got %d, want 42", v)
			}
		case <-time.After(time.Second):
			t.Fatalf("waiter %d never resumed", i)
		}
	}
}

func TestResultCellRegisterOnlyOnce(t *testing.T) {
	cell := NewResultCell[int]()
	cell.registerResult(1, true)
	cell.registerResult(2, true)
	v, ok := cell.snapshot()
	if !ok || v != 1 {
		t.Fatalf("got (%d, %v), want (1, true)", v, ok)
	}
}

func TestResultCellCloseIsIdempotentAndDropsLateRegisters(t *testing.T) {
	cell := NewResultCell[int]()
	cell.close()
	cell.close()
	cell.registerResult(9, true)
	_, ok := cell.snapshot()
	if ok {
		t.Fatalf("expected no value after close")
	}
}

func TestResultCellTryWaitForResultTimesOut(t *testing.T) {
	cell := NewResultCell[int]()
	_, ok := cell.tryWaitForResultSynchronously(10*time.Millisecond, true)
	if ok {
		t.Fatalf("expected timeout before a result was ever registered")
	}
}

func TestFromBeginEndSynchronousCompletionSkipsCell(t *testing.T) {
	begin := func(callback func(*IOResult), state any) *IOResult {
		iar := &IOResult{syncComplete: true}
		iar.completed.Store()
		return iar
	}
	end := func(iar *IOResult) (int, error) { return 5, nil }
	c := FromBeginEnd[int](begin, end, nil)
	got, err := RunSynchronously(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestFromBeginEndAsyncCompletionGoesThroughCell(t *testing.T) {
	begin := func(callback func(*IOResult), state any) *IOResult {
		iar := &IOResult{}
		go func() {
			time.Sleep(5 * time.Millisecond)
			iar.completed.Store()
			callback(iar)
		}()
		return iar
	}
	end := func(iar *IOResult) (int, error) { return 6, nil }
	c := FromBeginEnd[int](begin, end, nil)
	got, err := RunSynchronously(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Fatalf("got %d, want 6", got)
	}
}

func TestFromBeginEndEndErrorPropagates(t *testing.T) {
	begin := func(callback func(*IOResult), state any) *IOResult {
		iar := &IOResult{syncComplete: true}
		iar.completed.Store()
		return iar
	}
	end := func(iar *IOResult) (int, error) { return 0, errTestBeginEnd }
	c := FromBeginEnd[int](begin, end, nil)
	_, err := RunSynchronously(c)
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestSuspendedContinuationImmediateResumeWithoutSyncContext(t *testing.T) {
	holder := newTrampolineHolder()
	holder.executeWithTrampoline(func() Signal { return done })
	var ranOnThisGoroutine bool
	sc := &suspendedContinuation[int]{
		kont: func(v int) Signal {
			ranOnThisGoroutine = true
			return done
		},
		holder: holder,
	}
	sc.resume(true, 1)
	if !ranOnThisGoroutine {
		t.Fatalf("expected immediate synchronous resume")
	}
}
