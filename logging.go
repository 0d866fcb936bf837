// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// log holds the package-wide logger as an atomic pointer so SetLogger can
// be called concurrently with in-flight computations without a data race.
// Grounded on go.uber.org/zap (direct dependency of wippyai-wasm-runtime
// in the retrieval pack); logging here is strictly a side channel and
// never influences which continuation a combinator invokes.
var log atomic.Pointer[zap.Logger]

func init() {
	log.Store(zap.NewNop())
}

// SetLogger installs l as the package-wide logger. Passing nil installs a
// no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log.Store(l)
}

// logger returns the current package-wide logger.
func logger() *zap.Logger {
	return log.Load()
}
