package d3d11

import (
	"testing"

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/internal/cs"
	"github.com/gogpu/d3d11/shader"
)

func TestNewOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want options
	}{
		{
			name: "defaults",
			want: options{maxPendingDraws: DefaultMaxPendingDraws, chunkCapacity: cs.DefaultChunkCapacity, formatCacheSize: 256},
		},
		{
			name: "overrides",
			opts: []Option{
				WithMaxPendingDraws(10),
				WithChunkCapacity(32),
				WithMapNoWait(true),
				WithFormatCacheSize(0),
				WithShaderOptions(shader.Options{UseSimpleMinMaxClamp: true}),
			},
			want: options{
				maxPendingDraws: 10,
				chunkCapacity:   32,
				mapNoWait:       true,
				formatCacheSize: 0,
				shader:          shader.Options{UseSimpleMinMaxClamp: true},
			},
		},
		{
			name: "non-positive values keep defaults",
			opts: []Option{WithMaxPendingDraws(0), WithChunkCapacity(-1), WithFormatCacheSize(-5)},
			want: options{maxPendingDraws: DefaultMaxPendingDraws, chunkCapacity: cs.DefaultChunkCapacity, formatCacheSize: 256},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newOptions(tt.opts); got != tt.want {
				t.Errorf("newOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeviceOptions(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{}, WithMaxPendingDraws(7), WithChunkCapacity(5))
	if got := dev.MaxPendingDraws(); got != 7 {
		t.Errorf("MaxPendingDraws() = %d, want 7", got)
	}
	if got := dev.pool.Capacity(); got != 5 {
		t.Errorf("pool capacity = %d, want 5", got)
	}
}
