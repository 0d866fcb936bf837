// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"testing"

	"code.hybscloud.com/async"
)

func BenchmarkRunSynchronouslyReturn(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := async.RunSynchronously(async.Return(i)); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkBindChain(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := async.Return(0)
		for j := 0; j < 50; j++ {
			c = async.Bind(c, func(x int) async.Computation[int] {
				return async.Return(x + 1)
			})
		}
		if _, err := async.RunSynchronously(c); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkBindChainPastHijackThreshold(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := async.Return(0)
		for j := 0; j < 1000; j++ {
			c = async.Bind(c, func(x int) async.Computation[int] {
				return async.Return(x + 1)
			})
		}
		if _, err := async.RunSynchronously(c); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkParallelFanOut(b *testing.B) {
	for i := 0; i < b.N; i++ {
		cs := make([]async.Computation[int], 16)
		for j := range cs {
			j := j
			cs[j] = async.Return(j)
		}
		if _, err := async.RunSynchronously(async.Parallel(cs)); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkStartAsTask(b *testing.B) {
	for i := 0; i < b.N; i++ {
		task := async.StartAsTask(async.Return(i))
		if _, err := task.Wait(); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
