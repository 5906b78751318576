package backend

import (
	"bytes"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

func TestRegistry(t *testing.T) {
	if !IsRegistered(BackendSoftware) {
		t.Fatal("software backend not registered")
	}

	Register("test-fail", func(Config) (gpucore.Device, error) {
		return nil, errors.New("boom")
	})
	defer Unregister("test-fail")

	if _, err := Open("test-fail"); err == nil {
		t.Error("Open(test-fail) error = nil, want error")
	}
	if _, err := Open("missing"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(missing) error = %v, want ErrBackendNotAvailable", err)
	}

	dev, err := Open(BackendSoftware)
	if err != nil {
		t.Fatalf("Open(software) error = %v", err)
	}
	defer dev.Destroy()
	if got := dev.Info().Backend; got != BackendSoftware {
		t.Errorf("Info().Backend = %q, want %q", got, BackendSoftware)
	}
}

func newTestDevice(t *testing.T, cfg SoftwareConfig) *SoftwareDevice {
	t.Helper()
	d := NewSoftwareDevice(cfg)
	t.Cleanup(d.Destroy)
	return d
}

func submit(t *testing.T, d *SoftwareDevice, seq uint64, record func(cb gpucore.CommandBuffer)) {
	t.Helper()
	cb, err := d.CreateCommandBuffer()
	if err != nil {
		t.Fatalf("CreateCommandBuffer() error = %v", err)
	}
	if err := cb.Begin(); err != nil {
		t.Fatal(err)
	}
	record(cb)
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if err := d.Submit(cb, seq); err != nil {
		t.Fatalf("Submit(%d) error = %v", seq, err)
	}
}

func TestSoftwareDevice_CopyAndWait(t *testing.T) {
	d := newTestDevice(t, SoftwareConfig{})

	src, _ := d.CreateBuffer(&gpucore.BufferDesc{Size: 8, Memory: gpucore.MemoryHostVisible})
	dst, _ := d.CreateBuffer(&gpucore.BufferDesc{Size: 8, Memory: gpucore.MemoryDeviceLocal})
	copy(src.Data(), []byte{1, 2, 3, 4, 5, 6, 7, 8})

	if dst.Data() != nil {
		t.Error("device-local buffer exposes Data()")
	}

	submit(t, d, 1, func(cb gpucore.CommandBuffer) {
		cb.CopyBuffer(dst, 0, src, 4, 4)
	})

	ok, err := d.Wait(1, time.Second)
	if err != nil || !ok {
		t.Fatalf("Wait(1) = %v, %v, want true, nil", ok, err)
	}
	if got := BufferBytes(dst)[:4]; !bytes.Equal(got, []byte{5, 6, 7, 8}) {
		t.Errorf("dst = %v, want [5 6 7 8]", got)
	}
}

func TestSoftwareDevice_SubmitOrder(t *testing.T) {
	d := newTestDevice(t, SoftwareConfig{})
	cb, _ := d.CreateCommandBuffer()
	_ = cb.Begin()
	_ = cb.End()
	if err := d.Submit(cb, 2); err == nil {
		t.Error("Submit(2) as first submission error = nil, want error")
	}
}

func TestSoftwareDevice_Pause(t *testing.T) {
	d := newTestDevice(t, SoftwareConfig{})
	d.Pause()

	submit(t, d, 1, func(gpucore.CommandBuffer) {})

	if ok, _ := d.Wait(1, 0); ok {
		t.Fatal("Wait(1, 0) = true while paused")
	}
	if ok, _ := d.Wait(1, 10*time.Millisecond); ok {
		t.Fatal("Wait(1, 10ms) = true while paused")
	}

	d.Resume()
	if ok, _ := d.Wait(1, time.Second); !ok {
		t.Fatal("Wait(1) = false after Resume")
	}
	if got := d.Completed(); got != 1 {
		t.Errorf("Completed() = %d, want 1", got)
	}
}

func TestSoftwareDevice_ImageRoundTrip(t *testing.T) {
	d := newTestDevice(t, SoftwareConfig{})

	img, err := d.CreateImage(&gpucore.ImageDesc{
		Type:      gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Extent:    gpucore.Extent3D{Width: 4, Height: 2, Depth: 1},
		Layers:    1,
		MipLevels: 1,
		Samples:   gpucore.SampleCount1,
		Usage:     gpucore.ImageUsageTransferDst | gpucore.ImageUsageTransferSrc,
	})
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}

	up, _ := d.CreateBuffer(&gpucore.BufferDesc{Size: 32, Memory: gpucore.MemoryHostVisible})
	down, _ := d.CreateBuffer(&gpucore.BufferDesc{Size: 32, Memory: gpucore.MemoryHostVisible})
	for i := range up.Data() {
		up.Data()[i] = byte(i)
	}

	sub := gpucore.SubresourceLayers{Aspect: gpucore.AspectColor, LayerCount: 1}
	extent := gpucore.Extent3D{Width: 4, Height: 2, Depth: 1}
	submit(t, d, 1, func(cb gpucore.CommandBuffer) {
		cb.CopyBufferToImage(img, sub, gpucore.Offset3D{}, extent, up, 0)
		cb.CopyImageToBuffer(down, 0, img, sub, gpucore.Offset3D{}, extent)
	})
	if err := d.WaitIdle(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(up.Data(), down.Data()) {
		t.Errorf("round trip = %v, want %v", down.Data(), up.Data())
	}
}

func TestSoftwareDevice_ClearAndTrace(t *testing.T) {
	d := newTestDevice(t, SoftwareConfig{})

	rt, _ := d.CreateImage(&gpucore.ImageDesc{
		Type: gpucore.ImageType2D, Format: gpucore.FormatRGBA8Unorm,
		Extent: gpucore.Extent3D{Width: 2, Height: 2, Depth: 1},
		Layers: 1, MipLevels: 1, Samples: gpucore.SampleCount1,
		Usage: gpucore.ImageUsageColorAttachment,
	})
	vs, _ := d.CreateShader(&gpucore.ShaderDesc{Stage: gpucore.ShaderStageVertex, SPIRV: []uint32{0x07230203}})
	pipe, _ := d.CreatePipeline(&gpucore.PipelineDesc{Vertex: vs})

	submit(t, d, 1, func(cb gpucore.CommandBuffer) {
		cb.ClearColorImage(rt, gpucore.SubresourceLayers{Aspect: gpucore.AspectColor, LayerCount: 1}, gpucore.ClearColor{1, 0, 0, 1})
		cb.BeginRendering(&gpucore.RenderTargets{Color: [gpucore.MaxColorTargets]gpucore.Image{rt}})
		cb.BindPipeline(pipe)
		cb.Draw(3, 1, 0, 0)
		cb.EndRendering()
		cb.Dispatch(2, 1, 1)
	})
	_ = d.WaitIdle()

	if got := ImageBytes(rt)[:4]; !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("cleared texel = %v, want [255 0 0 255]", got)
	}

	trace := d.Trace()
	kinds := make([]EventKind, len(trace))
	for i, ev := range trace {
		kinds[i] = ev.Kind
	}
	want := []EventKind{EventClear, EventDraw, EventDispatch}
	if len(kinds) != len(want) {
		t.Fatalf("trace kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("trace[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
	if trace[1].Pipeline != pipe || trace[1].Args[0] != 3 {
		t.Errorf("draw event = %+v", trace[1])
	}
}

func TestSoftwareDevice_ImageFormatProperties(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SoftwareConfig
		format  gpucore.Format
		tiling  gpucore.Tiling
		usage   gpucore.ImageUsage
		wantErr bool
	}{
		{"optimal color", SoftwareConfig{}, gpucore.FormatRGBA8Unorm, gpucore.TilingOptimal, gpucore.ImageUsageSampled, false},
		{"linear disabled", SoftwareConfig{}, gpucore.FormatRGBA8Unorm, gpucore.TilingLinear, gpucore.ImageUsageSampled, true},
		{"linear enabled", SoftwareConfig{LinearTiling: true}, gpucore.FormatRGBA8Unorm, gpucore.TilingLinear, gpucore.ImageUsageSampled, false},
		{"linear compressed", SoftwareConfig{LinearTiling: true}, gpucore.FormatBC1RGBAUnorm, gpucore.TilingLinear, gpucore.ImageUsageSampled, true},
		{"compressed target", SoftwareConfig{}, gpucore.FormatBC3RGBAUnorm, gpucore.TilingOptimal, gpucore.ImageUsageColorAttachment, true},
		{"depth as color", SoftwareConfig{}, gpucore.FormatD32Float, gpucore.TilingOptimal, gpucore.ImageUsageColorAttachment, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t, tt.cfg)
			_, err := d.ImageFormatProperties(tt.format, gpucore.ImageType2D, tt.tiling, tt.usage, 0)
			if (err != nil) != tt.wantErr {
				t.Errorf("ImageFormatProperties() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
