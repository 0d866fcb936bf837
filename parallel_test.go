// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/async"
)

func TestParallelEmptyYieldsEmptySlice(t *testing.T) {
	got, err := async.RunSynchronously(async.Parallel[int](nil))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestParallelCollectsResultsInOrder(t *testing.T) {
	cs := make([]async.Computation[int], 5)
	for i := range cs {
		i := i
		cs[i] = async.Delay(func() async.Computation[int] {
			return async.Return(i * i)
		})
	}
	got, err := async.RunSynchronously(async.Parallel(cs))
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 4, 9, 16}, got)
}

func TestParallelFirstFailureCancelsSiblings(t *testing.T) {
	var cancelled atomic.Int32
	failing := async.Delay(func() async.Computation[int] {
		panic(fmt.Errorf("boom"))
	})
	slow := async.Bind(async.SwitchToThreadPool(), func(struct{}) async.Computation[int] {
		return async.TryCancelled(
			async.Sequential(async.Sleep(time.Hour), async.Return(0)),
			func(*async.CancelSignal) async.Computation[int] {
				cancelled.Add(1)
				return async.Return(0)
			},
		)
	})

	start := time.Now()
	_, err := async.RunSynchronously(async.Parallel([]async.Computation[int]{failing, slow}))
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
	require.Eventually(t, func() bool { return cancelled.Load() == 1 }, time.Second, time.Millisecond)
}
