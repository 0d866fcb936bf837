// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"context"

	"go.uber.org/zap"
)

// config collects the process-wide tunables [Configure] applies.
type config struct {
	hijackThreshold int64
	poolCapacity    int64
	logger          *zap.Logger
	defaultCtx      context.Context
}

// ConfigOption configures a [Configure] call.
type ConfigOption func(*config)

// WithHijackThreshold overrides the trampoline's bind-count hijack
// threshold (spec.md §4.1 default: 300). Intended for process start-up
// tuning — raising it trades stack depth for fewer detach-and-resume
// hops, lowering it does the reverse.
func WithHijackThreshold(n int64) ConfigOption {
	return func(c *config) { c.hijackThreshold = n }
}

// WithPoolCapacity overrides the default worker pool's capacity (see
// [SetPoolCapacity]).
func WithPoolCapacity(n int64) ConfigOption {
	return func(c *config) { c.poolCapacity = n }
}

// WithLogger replaces the package-level logger (see [SetLogger]).
func WithLogger(l *zap.Logger) ConfigOption {
	return func(c *config) { c.logger = l }
}

// WithDefaultContext roots the package's default cancellation source at
// ctx instead of context.Background(), so cancelling ctx cancels every
// computation still relying on [DefaultCancellationToken].
func WithDefaultContext(ctx context.Context) ConfigOption {
	return func(c *config) { c.defaultCtx = ctx }
}

// Configure applies process-wide tunables. Intended to run once at
// start-up before any computation is started; later calls take effect
// for computations started afterward (SPEC_FULL.md §1 Ambient Stack
// "Configuration" supplement — mirrors the teacher's doc.go description
// of process-wide, set-once-at-start-up tunables, realized here as
// functional options rather than compile-time generic instantiation).
func Configure(opts ...ConfigOption) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.hijackThreshold > 0 {
		hijackThreshold.Store(cfg.hijackThreshold)
	}
	if cfg.poolCapacity > 0 {
		SetPoolCapacity(cfg.poolCapacity)
	}
	if cfg.logger != nil {
		SetLogger(cfg.logger)
	}
	if cfg.defaultCtx != nil {
		resetDefaultTokenFrom(cfg.defaultCtx)
	}
}
