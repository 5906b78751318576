package d3d11

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
)

// emptyModule is the smallest valid SPIR-V module: a bare header.
var emptyModule = []uint32{0x07230203, 0x00010000, 0, 1, 0}

func newTestDevice(t *testing.T, cfg backend.SoftwareConfig, opts ...Option) (*Device, *backend.SoftwareDevice) {
	t.Helper()
	soft := backend.NewSoftwareDevice(cfg)
	dev, err := NewDevice(soft, opts...)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	t.Cleanup(func() {
		soft.Resume()
		if err := dev.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		soft.Destroy()
	})
	return dev, soft
}

func testShader(t *testing.T, dev *Device, stage gpucore.ShaderStage) *Shader {
	t.Helper()
	s, err := dev.CreateShaderFromSPIRV(stage, stage.String(), emptyModule)
	if err != nil {
		t.Fatalf("CreateShaderFromSPIRV() error = %v", err)
	}
	return s
}

func testTarget(t *testing.T, dev *Device) *Texture {
	t.Helper()
	tex, err := dev.CreateTexture(&TextureDesc{
		Label:     "target",
		Dimension: gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Width:     4,
		Height:    4,
		MipLevels: 1,
		Bind:      BindRenderTarget | BindShaderResource,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	return tex
}

func testBuffer(t *testing.T, dev *Device, desc BufferDesc, initial []byte) *Buffer {
	t.Helper()
	var sd *SubresourceData
	if initial != nil {
		sd = &SubresourceData{Data: initial}
	}
	b, err := dev.CreateBuffer(&desc, sd)
	if err != nil {
		t.Fatalf("CreateBuffer(%q) error = %v", desc.Label, err)
	}
	return b
}

// drawable is the context surface shared by immediate and deferred contexts.
type drawable interface {
	SetShaders(vs, fs *Shader)
	SetRenderTargets(colors []*Texture, depth *Texture)
	SetViewports(viewports []gpucore.Viewport)
	SetBlendFactor(factor [4]float32)
	SetStencilRef(ref uint32)
	SetPipelineState(ps PipelineState)
	Draw(vertexCount, firstVertex uint32)
}

// setupDraw binds shaders and a render target so draws reach the GPU.
func setupDraw(t *testing.T, dev *Device, c drawable, target *Texture) {
	t.Helper()
	c.SetShaders(testShader(t, dev, gpucore.ShaderStageVertex), testShader(t, dev, gpucore.ShaderStageFragment))
	c.SetRenderTargets([]*Texture{target}, nil)
}

// finish submits all immediate work and waits for the GPU.
func finish(dev *Device) {
	ctx := dev.ImmediateContext()
	ctx.Flush()
	ctx.Synchronize()
	dev.gpu.WaitForIdle()
}

func draws(trace []backend.Event) []backend.Event {
	var out []backend.Event
	for _, ev := range trace {
		if ev.Kind == backend.EventDraw || ev.Kind == backend.EventDrawIndexed {
			out = append(out, ev)
		}
	}
	return out
}

// recordHandler captures log records.
type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func captureLogs(t *testing.T) *recordHandler {
	t.Helper()
	orig := Logger()
	h := &recordHandler{}
	SetLogger(slog.New(h))
	t.Cleanup(func() { SetLogger(orig) })
	return h
}
