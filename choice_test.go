// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/async"
)

func TestChoiceEmptyYieldsNone(t *testing.T) {
	got, err := async.RunSynchronously(async.Choice[int](nil))
	require.NoError(t, err)
	require.False(t, got.IsSome())
}

func TestChoiceAllNoneYieldsNone(t *testing.T) {
	cs := []async.Computation[async.Option[int]]{
		async.Return(async.None[int]()),
		async.Return(async.None[int]()),
	}
	got, err := async.RunSynchronously(async.Choice(cs))
	require.NoError(t, err)
	require.False(t, got.IsSome())
}

func TestChoiceFirstSomeWins(t *testing.T) {
	winner := async.Return(async.Some(1))
	loser := async.Bind(async.SwitchToThreadPool(), func(struct{}) async.Computation[async.Option[int]] {
		return async.Sequential(async.Sleep(time.Hour), async.Return(async.None[int]()))
	})
	got, err := async.RunSynchronously(async.Choice([]async.Computation[async.Option[int]]{winner, loser}))
	require.NoError(t, err)
	v, ok := got.Get()
	require.True(t, ok)
	require.Equal(t, 1, v)
}
