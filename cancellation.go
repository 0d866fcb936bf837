// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"context"
	"sync"
)

// CancelSignal is the value delivered to a cancellation continuation. It
// carries the token whose cancellation triggered the exit.
type CancelSignal struct {
	Token CancellationToken
}

func newCancelSignal(t CancellationToken) *CancelSignal {
	return &CancelSignal{Token: t}
}

// CancellationToken is a read-only view of a cancellation source. It wraps
// a context.Context rather than reinventing cancellation plumbing, since
// context is how every goroutine-based bridge in this package (timers,
// wait handles, child computations) already signals "stop".
type CancellationToken struct {
	ctx context.Context
}

// TokenFromContext adapts a context.Context into a CancellationToken for
// interop with code that already carries a context.
func TokenFromContext(ctx context.Context) CancellationToken {
	if ctx == nil {
		ctx = context.Background()
	}
	return CancellationToken{ctx: ctx}
}

// Context returns the underlying context.Context.
func (t CancellationToken) Context() context.Context { return t.ctx }

// IsCancellationRequested reports whether the token has been cancelled.
func (t CancellationToken) IsCancellationRequested() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the token is cancelled.
func (t CancellationToken) Done() <-chan struct{} { return t.ctx.Done() }

// Registration is a handle returned by [CancellationToken.Register]. Its
// Dispose method unregisters the callback; it is idempotent.
type Registration struct {
	stop chan struct{}
	once sync.Once
}

// Dispose unregisters the callback. Safe to call more than once and safe
// to call after the callback has already fired.
func (r *Registration) Dispose() {
	r.once.Do(func() { close(r.stop) })
}

// Register arranges for f to run when the token is cancelled. If the
// token is already cancelled, f runs synchronously on the calling
// goroutine before Register returns (reentrant-safe per spec.md §5:
// registrations may fire synchronously at registration time). Otherwise f
// runs on a dedicated goroutine that exits either when the token cancels
// or when the returned Registration is disposed first.
func (t CancellationToken) Register(f func()) *Registration {
	reg := &Registration{stop: make(chan struct{})}
	if t.ctx.Done() == nil {
		return reg
	}
	select {
	case <-t.ctx.Done():
		f()
		return reg
	default:
	}
	go func() {
		select {
		case <-t.ctx.Done():
			f()
		case <-reg.stop:
		}
	}()
	return reg
}

// CancellationSource owns a cancellable context and the token derived from
// it. Every combinator that creates one (see [LinkSource]) owns it: it
// must be disposed on exactly one completion path.
type CancellationSource struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCancellationSource creates a source rooted at context.Background().
func NewCancellationSource() *CancellationSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &CancellationSource{ctx: ctx, cancel: cancel}
}

// LinkSource creates a CancellationSource whose token is cancelled when
// either the parent token or the returned source's own Cancel is invoked
// (spec.md §3 LinkedSubSource). context.WithCancel already gives us this
// for free: the derived context is cancelled when the parent is, and
// cancel() cancels it directly.
func LinkSource(parent CancellationToken) *CancellationSource {
	ctx, cancel := context.WithCancel(parent.ctx)
	return &CancellationSource{ctx: ctx, cancel: cancel}
}

// Token returns the token for this source.
func (s *CancellationSource) Token() CancellationToken {
	return CancellationToken{ctx: s.ctx}
}

// Cancel requests cancellation of this source's token.
func (s *CancellationSource) Cancel() { s.cancel() }

// Close releases the source's resources. It is safe to call multiple
// times. Releasing a context's resources means calling its cancel
// function, so Close also cancels the token: callbacks still registered
// on it fire.
func (s *CancellationSource) Close() {
	s.cancel()
}

var (
	defaultMu     sync.Mutex
	defaultSource = NewCancellationSource()
)

// DefaultCancellationToken returns the current default token.
func DefaultCancellationToken() CancellationToken {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultSource.Token()
}

// CancelDefaultToken cancels the current default source.
func CancelDefaultToken() {
	defaultMu.Lock()
	s := defaultSource
	defaultMu.Unlock()
	s.Cancel()
}

// ResetDefaultToken replaces the default source with a fresh one. The new
// source is published before the old one is cancelled (spec.md §9: this
// ordering guarantees that resetting the default does not leave the
// library observing a steady-state-cancelled default token).
func ResetDefaultToken() {
	resetDefaultTokenFrom(context.Background())
}

// resetDefaultTokenFrom is [ResetDefaultToken] generalized to root the
// replacement source at a caller-supplied context rather than always
// context.Background(), backing [WithDefaultContext].
func resetDefaultTokenFrom(ctx context.Context) {
	defaultMu.Lock()
	old := defaultSource
	defaultSource = LinkSource(TokenFromContext(ctx))
	defaultMu.Unlock()
	old.Close()
}
