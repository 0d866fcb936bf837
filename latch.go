// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import "sync/atomic"

// Latch is a compare-and-swap gate: [Latch.Fire] returns true exactly
// once across any number of concurrent callers. Grounded directly on the
// teacher's Affine one-shot CAS pattern (affine.go in
// code.hybscloud.com/kont), generalized from "resume a continuation once"
// to "cross a gate once".
type Latch struct {
	fired atomic.Uint32
}

// Fire attempts to cross the gate. Returns true for exactly one caller.
func (l *Latch) Fire() bool {
	return l.fired.CompareAndSwap(0, 1)
}

// Fired reports whether the gate has already been crossed.
func (l *Latch) Fired() bool {
	return l.fired.Load() != 0
}

// Once guards a thunk so it runs at most once, even under concurrent
// calls. Callers that lose the race block until the winner's thunk has
// returned.
type Once struct {
	latch Latch
	done  chan struct{}
}

// NewOnce creates a ready-to-use Once gate.
func NewOnce() *Once {
	return &Once{done: make(chan struct{})}
}

// Do runs f if this is the first call; concurrent and later callers block
// until f has returned (or return immediately if it already has).
func (o *Once) Do(f func()) {
	if o.latch.Fire() {
		defer close(o.done)
		f()
		return
	}
	<-o.done
}

// VolatileBarrier is a memory-visibility marker: writing it with Store and
// reading it with Load establishes a happens-before edge between the
// writer and any reader that observes the write, mirroring the role a
// `volatile` field plays in the source runtimes this package's scheduling
// model is drawn from. Go's race detector and memory model already treat
// atomic operations this way, so VolatileBarrier is a thin, explicit
// atomic.Bool — its value carries no meaning beyond "has the writer run".
type VolatileBarrier struct {
	flag atomic.Bool
}

// Store publishes the barrier.
func (b *VolatileBarrier) Store() { b.flag.Store(true) }

// Load reports whether Store has happened-before this call.
func (b *VolatileBarrier) Load() bool { return b.flag.Load() }
