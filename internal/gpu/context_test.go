package gpu

import (
	"bytes"
	"testing"

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
)

func newTestDevice(t *testing.T) (*Device, *backend.SoftwareDevice) {
	t.Helper()
	soft := backend.NewSoftwareDevice(backend.SoftwareConfig{Name: "test"})
	dev := NewDevice(soft, 16)
	t.Cleanup(func() {
		dev.Close()
		soft.Destroy()
	})
	return dev, soft
}

func newTestContext(t *testing.T, dev *Device) *Context {
	t.Helper()
	ctx, err := NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(ctx.Discard)
	return ctx
}

func testShader(t *testing.T, dev *Device, stage gpucore.ShaderStage) gpucore.Shader {
	t.Helper()
	s, err := dev.CreateShader(&gpucore.ShaderDesc{Label: stage.String(), Stage: stage, SPIRV: []uint32{0x07230203}})
	if err != nil {
		t.Fatalf("CreateShader() error = %v", err)
	}
	return s
}

func testImage(t *testing.T, dev *Device, usage gpucore.ImageUsage) *Image {
	t.Helper()
	img, err := dev.CreateImage(&gpucore.ImageDesc{
		Type:      gpucore.ImageType2D,
		Format:    gpucore.FormatRGBA8Unorm,
		Extent:    gpucore.Extent3D{Width: 4, Height: 4, Depth: 1},
		Layers:    1,
		MipLevels: 1,
		Samples:   gpucore.SampleCount1,
		Usage:     usage,
		Memory:    gpucore.MemoryDeviceLocal,
		Layout:    gpucore.OptimizeLayout(usage),
	})
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}
	return img
}

func TestContextFlushRetires(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := newTestContext(t, dev)

	for want := uint64(1); want <= 3; want++ {
		seq := ctx.Flush()
		if seq != want {
			t.Fatalf("Flush() = %d, want %d", seq, want)
		}
	}
	dev.Tracker().WaitFor(3)
	if !dev.Tracker().IsRetired(3) {
		t.Errorf("IsRetired(3) = false after WaitFor")
	}
	if got := dev.Submissions(); got != 3 {
		t.Errorf("Submissions() = %d, want 3", got)
	}
}

func TestUploadBufferRenames(t *testing.T) {
	dev, soft := newTestDevice(t)
	ctx := newTestContext(t, dev)

	buf, err := dev.CreateBuffer(BufferInfo{Size: 4, Usage: gpucore.BufferUsageVertex}, gpucore.MemoryHostVisible|gpucore.MemoryHostCoherent)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	first := buf.Slice()

	soft.Pause()
	t.Cleanup(soft.Resume)
	ctx.BindVertexBuffers(0, []VertexBinding{{Buffer: buf, Stride: 4}})
	ctx.SetShaders(testShader(t, dev, gpucore.ShaderStageVertex), nil, nil)
	ctx.SetRenderTargets(Targets{Color: [gpucore.MaxColorTargets]*Image{testImage(t, dev, gpucore.ImageUsageColorAttachment)}})
	ctx.Draw(3, 1, 0, 0)
	seq := ctx.Flush()

	if !first.IsInUse() {
		t.Fatalf("first slice not in use while its submission is pending")
	}
	ctx.UploadBuffer(buf, []byte{1, 2, 3, 4})
	second := buf.Slice()
	if second == first {
		t.Fatalf("UploadBuffer() kept the busy slice")
	}
	if !bytes.Equal(second.Data(), []byte{1, 2, 3, 4}) {
		t.Errorf("new slice data = %v, want [1 2 3 4]", second.Data())
	}

	soft.Resume()
	dev.Tracker().WaitFor(seq)
	if first.IsInUse() {
		t.Errorf("first slice still in use after retirement")
	}

	third, err := buf.AllocSlice()
	if err != nil {
		t.Fatalf("AllocSlice() error = %v", err)
	}
	if third != first {
		t.Errorf("AllocSlice() did not reuse the retired slice")
	}
	if got := buf.SliceCount(); got != 2 {
		t.Errorf("SliceCount() = %d, want 2", got)
	}
}

func TestUploadBufferDeviceLocal(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := newTestContext(t, dev)

	buf, err := dev.CreateBuffer(BufferInfo{Size: 8, Usage: gpucore.BufferUsageUniform | gpucore.BufferUsageTransferDst}, gpucore.MemoryDeviceLocal)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	data := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	ctx.UploadBuffer(buf, data)
	ctx.UpdateBuffer(buf, 2, []byte{0xaa, 0xbb})
	dev.Tracker().WaitFor(ctx.Flush())

	want := []byte{8, 7, 0xaa, 0xbb, 4, 3, 2, 1}
	if got := backend.BufferBytes(buf.Slice().Handle()); !bytes.Equal(got, want) {
		t.Errorf("buffer = %v, want %v", got, want)
	}
	if got := dev.MemoryStats().HostVisibleBytes; got != 0 {
		t.Errorf("HostVisibleBytes = %d after staging retired, want 0", got)
	}
}

func TestDrawAppliesState(t *testing.T) {
	dev, soft := newTestDevice(t)
	ctx := newTestContext(t, dev)

	vb, err := dev.CreateBuffer(BufferInfo{Size: 64, Usage: gpucore.BufferUsageVertex}, gpucore.MemoryDeviceLocal)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	rt := testImage(t, dev, gpucore.ImageUsageColorAttachment)

	// Dropped: no vertex shader.
	ctx.Draw(3, 1, 0, 0)

	ctx.SetShaders(testShader(t, dev, gpucore.ShaderStageVertex), testShader(t, dev, gpucore.ShaderStageFragment), nil)
	ctx.SetRenderTargets(Targets{Color: [gpucore.MaxColorTargets]*Image{rt}})
	ctx.BindVertexBuffers(0, []VertexBinding{{Buffer: vb, Stride: 16}})
	ctx.SetViewports([]gpucore.Viewport{{Width: 4, Height: 4, MaxDepth: 1}})
	ctx.SetBlendConstants([4]float32{0.5, 0.5, 0.5, 1})
	ctx.SetStencilReference(7)
	ctx.Draw(3, 1, 0, 0)

	// Dispatch must close the rendering scope first.
	ctx.SetShaders(ctx.State().Vertex, ctx.State().Fragment, testShader(t, dev, gpucore.ShaderStageCompute))
	ctx.Dispatch(2, 1, 1)
	ctx.Draw(6, 1, 0, 0)
	dev.Tracker().WaitFor(ctx.Flush())

	if got := ctx.Draws(); got != 2 {
		t.Errorf("Draws() = %d, want 2", got)
	}
	trace := soft.Trace()
	kinds := make([]backend.EventKind, len(trace))
	for i, ev := range trace {
		kinds[i] = ev.Kind
	}
	want := []backend.EventKind{backend.EventDraw, backend.EventDispatch, backend.EventDraw}
	if len(kinds) != len(want) {
		t.Fatalf("trace kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("trace kinds = %v, want %v", kinds, want)
		}
	}

	first := trace[0]
	if first.VertexBuffer != vb.Slice().Handle() {
		t.Errorf("draw vertex buffer = %v, want current slice", first.VertexBuffer)
	}
	if first.Target != rt.Handle() {
		t.Errorf("draw target = %v, want %v", first.Target, rt.Handle())
	}
	if first.StencilRef != 7 || first.Blend != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Errorf("draw state = stencil %d blend %v", first.StencilRef, first.Blend)
	}
	if trace[2].StencilRef != 7 {
		t.Errorf("state not re-applied after dispatch: stencil = %d", trace[2].StencilRef)
	}
	if rt.Layout() != gpucore.ImageLayoutColorAttachment {
		t.Errorf("target layout = %v, want %v", rt.Layout(), gpucore.ImageLayoutColorAttachment)
	}
}

func TestImageUploadAndReadback(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := newTestContext(t, dev)

	img := testImage(t, dev, gpucore.ImageUsageSampled|gpucore.ImageUsageTransferDst|gpucore.ImageUsageTransferSrc)
	ctx.InitializeImage(img)

	data := make([]byte, 4*4*4)
	for i := range data {
		data[i] = byte(i)
	}
	sub := gpucore.SubresourceLayers{Aspect: gpucore.AspectColor, LayerCount: 1}
	ctx.UploadImage(img, sub, data)

	readback, err := dev.CreateBuffer(BufferInfo{Size: uint64(len(data)), Usage: gpucore.BufferUsageTransferDst}, gpucore.MemoryHostVisible)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	ctx.CopyImageToBuffer(readback, 0, img, sub, gpucore.Offset3D{}, img.MipLevelExtent(0))
	dev.Tracker().WaitFor(ctx.Flush())

	if got := readback.Slice().Data(); !bytes.Equal(got, data) {
		t.Errorf("readback = %v, want %v", got, data)
	}
	if img.Layout() != gpucore.ImageLayoutShaderReadOnly {
		t.Errorf("Layout() = %v, want %v", img.Layout(), gpucore.ImageLayoutShaderReadOnly)
	}
	if img.IsInUse() {
		t.Errorf("image in use after retirement")
	}
}

func TestResetState(t *testing.T) {
	dev, _ := newTestDevice(t)
	ctx := newTestContext(t, dev)

	ctx.SetStencilReference(3)
	ctx.SetViewports([]gpucore.Viewport{{Width: 1, Height: 1}})
	saved := ctx.State()
	ctx.ResetState()

	if got := ctx.State().StencilRef; got != 0 {
		t.Errorf("StencilRef after reset = %d, want 0", got)
	}
	ctx.SetState(saved)
	if got := ctx.State(); got.StencilRef != 3 || len(got.Viewports) != 1 {
		t.Errorf("SetState() did not restore: %+v", got)
	}
	if DefaultState().SampleMask != ^uint32(0) {
		t.Errorf("default SampleMask = %#x", DefaultState().SampleMask)
	}
}
