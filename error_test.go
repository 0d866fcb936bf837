// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/async"
)

func TestExceptionInfoWrapsPanicValue(t *testing.T) {
	_, err := async.RunSynchronously(async.Delay(func() async.Computation[int] {
		panic("boom")
	}))
	require.Error(t, err)
	ei, ok := err.(*async.ExceptionInfo)
	require.True(t, ok)
	require.NotEmpty(t, ei.Stack)
	require.Equal(t, "async: panic: boom", ei.Error())
}

func TestExceptionInfoWrapsPanickedError(t *testing.T) {
	sentinel := errors.New("sentinel")
	_, err := async.RunSynchronously(async.Delay(func() async.Computation[int] {
		panic(sentinel)
	}))
	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
}

func TestLookupExceptionInfoRestoresCaptureSite(t *testing.T) {
	sentinel := errors.New("lookup-sentinel")
	_, err := async.RunSynchronously(async.Delay(func() async.Computation[int] {
		panic(sentinel)
	}))
	require.Error(t, err)

	ei, ok := async.LookupExceptionInfo(sentinel)
	require.True(t, ok)
	require.NotEmpty(t, ei.Stack)
}

func TestCancelErrorMessage(t *testing.T) {
	src := async.NewCancellationSource()
	src.Cancel()
	_, err := async.RunSynchronously(async.Return(1), async.WithToken(src.Token()))
	require.Error(t, err)
	require.Equal(t, "async: computation canceled", err.Error())
}
