// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/async"
)

func TestFromContinuationsSyncSuccessIsParked(t *testing.T) {
	c := async.FromContinuations(func(kSucc func(int), kExn func(error), kCancel func(*async.CancelSignal)) {
		kSucc(3)
	})
	got, err := async.RunSynchronously(c)
	require.NoError(t, err)
	require.Equal(t, 3, got)
}

func TestFromContinuationsAsyncSuccess(t *testing.T) {
	c := async.FromContinuations(func(kSucc func(int), kExn func(error), kCancel func(*async.CancelSignal)) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			kSucc(4)
		}()
	})
	got, err := async.RunSynchronously(c)
	require.NoError(t, err)
	require.Equal(t, 4, got)
}

func TestFromContinuationsDoubleInvokePanics(t *testing.T) {
	c := async.FromContinuations(func(kSucc func(int), kExn func(error), kCancel func(*async.CancelSignal)) {
		kSucc(1)
		kSucc(2)
	})
	require.Panics(t, func() {
		_, _ = async.RunSynchronously(c)
	})
}

func TestFromContinuationsExceptionPropagates(t *testing.T) {
	c := async.FromContinuations(func(kSucc func(int), kExn func(error), kCancel func(*async.CancelSignal)) {
		kExn(errors.New("boom"))
	})
	_, err := async.RunSynchronously(c)
	require.Error(t, err)
}

func TestSleepCompletesAfterDuration(t *testing.T) {
	start := time.Now()
	_, err := async.RunSynchronously(async.Sleep(10 * time.Millisecond))
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepCancelled(t *testing.T) {
	src := async.NewCancellationSource()
	go func() {
		time.Sleep(5 * time.Millisecond)
		src.Cancel()
	}()
	_, err := async.RunSynchronously(async.Sleep(time.Hour), async.WithToken(src.Token()))
	require.Error(t, err)
	var ce *async.CancelError
	require.ErrorAs(t, err, &ce)
}

func TestAwaitWaitHandleZeroTimeoutPollsImmediately(t *testing.T) {
	wh := make(chan struct{})
	got, err := async.RunSynchronously(async.AwaitWaitHandle(wh, async.WithWaitTimeout(0)))
	require.NoError(t, err)
	require.False(t, got)

	close(wh)
	got, err = async.RunSynchronously(async.AwaitWaitHandle(wh, async.WithWaitTimeout(0)))
	require.NoError(t, err)
	require.True(t, got)
}

func TestAwaitWaitHandleSignalledBeforeTimeout(t *testing.T) {
	wh := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		close(wh)
	}()
	got, err := async.RunSynchronously(async.AwaitWaitHandle(wh, async.WithWaitTimeout(time.Second)))
	require.NoError(t, err)
	require.True(t, got)
}

func TestAwaitWaitHandleTimesOutWhenNeverSignalled(t *testing.T) {
	wh := make(chan struct{})
	got, err := async.RunSynchronously(async.AwaitWaitHandle(wh, async.WithWaitTimeout(10*time.Millisecond)))
	require.NoError(t, err)
	require.False(t, got)
}

type fakeEventSource[T any] struct {
	handler func(T)
}

func (f *fakeEventSource[T]) Subscribe(handler func(T)) (unsubscribe func()) {
	f.handler = handler
	return func() { f.handler = nil }
}

func (f *fakeEventSource[T]) fire(v T) {
	if f.handler != nil {
		f.handler(v)
	}
}

func TestAwaitEventSucceedsWithPayload(t *testing.T) {
	ev := &fakeEventSource[int]{}
	c := async.AwaitEvent[int](ev, nil)

	done := make(chan struct{})
	var got int
	var gotErr error
	go func() {
		got, gotErr = async.RunSynchronously(c)
		close(done)
	}()
	require.Eventually(t, func() bool { return ev.handler != nil }, time.Second, time.Millisecond)
	ev.fire(9)
	<-done
	require.NoError(t, gotErr)
	require.Equal(t, 9, got)
}

func TestAwaitEventCancelledInvokesCancelCallback(t *testing.T) {
	ev := &fakeEventSource[int]{}
	var cancelCalled bool
	src := async.NewCancellationSource()
	c := async.AwaitEvent[int](ev, func() { cancelCalled = true })

	done := make(chan struct{})
	var gotErr error
	go func() {
		_, gotErr = async.RunSynchronously(c, async.WithToken(src.Token()))
		close(done)
	}()
	require.Eventually(t, func() bool { return ev.handler != nil }, time.Second, time.Millisecond)
	src.Cancel()
	<-done
	require.Error(t, gotErr)
	require.True(t, cancelCalled)
}

func TestAwaitTaskCancellationAsException(t *testing.T) {
	src := async.NewCancellationSource()
	src.Cancel()
	task := async.StartAsTask(async.Return(1), async.WithStartToken(src.Token()))

	c := async.AwaitTask(task, true)
	_, err := async.RunSynchronously(c)
	require.Error(t, err)
	var ce *async.CancelError
	require.ErrorAs(t, err, &ce)
}

func TestAwaitTaskCancellationAsCancelSignal(t *testing.T) {
	src := async.NewCancellationSource()
	src.Cancel()
	task := async.StartAsTask(async.Return(1), async.WithStartToken(src.Token()))

	c := async.AwaitTask(task, false)
	_, err := async.RunSynchronously(c)
	require.Error(t, err)
	var cancelErr *async.CancelError
	require.ErrorAs(t, err, &cancelErr)
}

func TestAsBeginEndRoundTrips(t *testing.T) {
	c := async.Return(7)
	begin, end, _ := async.AsBeginEnd(c)
	iar := begin(nil, nil)
	require.Eventually(t, func() bool { return iar.IsCompleted() }, time.Second, time.Millisecond)
	v, err := end(iar)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestAsBeginEndCancel(t *testing.T) {
	c := async.Sequential(async.Sleep(time.Hour), async.Return(0))
	begin, end, cancel := async.AsBeginEnd(c)
	iar := begin(nil, nil)
	cancel(iar)
	_, err := end(iar)
	require.Error(t, err)
}

func TestOnCancelInvokesCallback(t *testing.T) {
	src := async.NewCancellationSource()
	var invoked bool
	c := async.Bind(async.OnCancel(func() { invoked = true }), func(*async.CancelHandle) async.Computation[struct{}] {
		return async.Sleep(time.Hour)
	})
	go func() {
		time.Sleep(5 * time.Millisecond)
		src.Cancel()
	}()
	_, err := async.RunSynchronously(c, async.WithToken(src.Token()))
	require.Error(t, err)
	require.True(t, invoked)
}

func TestOnCancelDisposeSuppressesCallback(t *testing.T) {
	c := async.Bind(async.OnCancel(func() { t.Fatalf("must not run after dispose") }), func(h *async.CancelHandle) async.Computation[int] {
		_ = h.Dispose()
		return async.Return(1)
	})
	got, err := async.RunSynchronously(c)
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestSwitchToThreadPoolMigratesExecution(t *testing.T) {
	c := async.Bind(async.SwitchToThreadPool(), func(struct{}) async.Computation[int] {
		return async.Return(1)
	})
	got, err := async.RunSynchronously(c)
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestSwitchToNewThreadMigratesExecution(t *testing.T) {
	c := async.Bind(async.SwitchToNewThread(), func(struct{}) async.Computation[int] {
		return async.Return(1)
	})
	got, err := async.RunSynchronously(c)
	require.NoError(t, err)
	require.Equal(t, 1, got)
}
