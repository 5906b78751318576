package d3d11

import (
	"log/slog"

	"github.com/gogpu/d3d11/internal/cs"
	"github.com/gogpu/d3d11/shader"
)

// DefaultMaxPendingDraws is the number of draws the immediate context
// records before it submits on its own.
const DefaultMaxPendingDraws = 500

// Option configures a Device during creation.
//
// Example:
//
//	dev, err := d3d11.OpenDefault(
//	    d3d11.WithMaxPendingDraws(1000),
//	    d3d11.WithMapNoWait(true),
//	)
type Option func(*options)

// options holds the device configuration.
type options struct {
	maxPendingDraws int
	chunkCapacity   int
	mapNoWait       bool
	logger          *slog.Logger
	formatCacheSize int
	shader          shader.Options
}

// defaultOptions returns the default device options.
func defaultOptions() options {
	return options{
		maxPendingDraws: DefaultMaxPendingDraws,
		chunkCapacity:   cs.DefaultChunkCapacity,
		formatCacheSize: 256,
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxPendingDraws sets how many draws the immediate context records
// before ExecuteCommandList or SetRenderTargets submit pending work.
// Non-positive values keep the default.
func WithMaxPendingDraws(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPendingDraws = n
		}
	}
}

// WithChunkCapacity sets the number of commands per chunk. Non-positive
// values keep the default.
func WithChunkCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkCapacity = n
		}
	}
}

// WithMapNoWait makes Map honor MapFlagDoNotWait. Without it the flag is
// ignored and maps on busy resources block.
func WithMapNoWait(enabled bool) Option {
	return func(o *options) {
		o.mapNoWait = enabled
	}
}

// WithLogger installs l as the package logger when the device is created.
// It is equivalent to calling SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFormatCacheSize bounds the number of cached format capability
// queries. Zero means unbounded.
func WithFormatCacheSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.formatCacheSize = n
		}
	}
}

// WithShaderOptions sets the compiler options applied to every shader the
// device creates.
func WithShaderOptions(so shader.Options) Option {
	return func(o *options) {
		o.shader = so
	}
}
