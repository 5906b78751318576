package cs

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/gpu"
)

func newTestThread(t *testing.T, capacity int) (*Thread, *Pool, *gpu.Device, *backend.SoftwareDevice) {
	t.Helper()
	soft := backend.NewSoftwareDevice(backend.SoftwareConfig{Name: "cs"})
	dev := gpu.NewDevice(soft, 0)
	ctx, err := gpu.NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	pool := NewPool(capacity)
	th := NewThread(ctx, pool)
	t.Cleanup(func() {
		th.Close()
		ctx.Discard()
		dev.Close()
		soft.Destroy()
	})
	return th, pool, dev, soft
}

// recorder collects tags on the execution thread.
type recorder struct {
	tags []int
}

func (r *recorder) cmd(tag int) Command {
	return FuncCommand{Fn: func(*gpu.Context) { r.tags = append(r.tags, tag) }}
}

func TestCommandType(t *testing.T) {
	tests := []struct {
		typ  CommandType
		name string
		draw bool
	}{
		{CmdSetShaders, "SetShaders", false},
		{CmdDraw, "Draw", true},
		{CmdDrawIndexed, "DrawIndexed", true},
		{CmdDispatch, "Dispatch", true},
		{CmdClearColor, "ClearColor", false},
		{CmdSubmit, "Submit", false},
		{CommandType(200), "Unknown", false},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.typ.IsDraw(); got != tt.draw {
			t.Errorf("%s.IsDraw() = %v, want %v", tt.name, got, tt.draw)
		}
	}
}

func TestChunkAppend(t *testing.T) {
	pool := NewPool(2)
	c := pool.Get()

	if err := c.Append(DrawCommand{VertexCount: 3}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := c.Append(SetStencilRefCommand{Ref: 1}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := c.Append(DrawCommand{}); !errors.Is(err, ErrChunkFull) {
		t.Errorf("Append() on full chunk = %v, want ErrChunkFull", err)
	}
	if c.Draws() != 1 || c.Len() != 2 {
		t.Errorf("Draws(), Len() = %d, %d, want 1, 2", c.Draws(), c.Len())
	}

	c.Seal()
	if err := c.Append(DrawCommand{}); !errors.Is(err, ErrChunkSealed) {
		t.Errorf("Append() on sealed chunk = %v, want ErrChunkSealed", err)
	}

	pool.Put(c)
	again := pool.Get()
	if again != c {
		t.Fatalf("Get() did not reuse the returned chunk")
	}
	if !again.Empty() || again.Sealed() || again.Draws() != 0 {
		t.Errorf("reused chunk not reset: len %d sealed %v draws %d", again.Len(), again.Sealed(), again.Draws())
	}
	if pool.Allocated() != 1 {
		t.Errorf("Allocated() = %d, want 1", pool.Allocated())
	}
}

func TestStreamHandOff(t *testing.T) {
	pool := NewPool(4)
	var got []*Chunk
	s := NewStream(pool, func(c *Chunk) { got = append(got, c) })

	for range 10 {
		s.Emit(DrawCommand{VertexCount: 3})
	}
	if len(got) != 2 {
		t.Fatalf("hand-offs after 10 emits = %d, want 2", len(got))
	}
	for i, c := range got {
		if !c.Sealed() || c.Len() != 4 {
			t.Errorf("chunk %d: sealed %v len %d, want sealed with 4", i, c.Sealed(), c.Len())
		}
	}
	if s.Draws() != 2 {
		t.Errorf("Draws() = %d, want 2", s.Draws())
	}
	if !s.Flush() {
		t.Errorf("Flush() = false with pending commands")
	}
	if s.Flush() {
		t.Errorf("Flush() = true on empty chunk")
	}
	if s.HandedOff() != 3 || s.Emitted() != 10 {
		t.Errorf("HandedOff(), Emitted() = %d, %d, want 3, 10", s.HandedOff(), s.Emitted())
	}
	if got[2].Len() != 2 {
		t.Errorf("flushed chunk len = %d, want 2", got[2].Len())
	}
}

func TestThreadFIFO(t *testing.T) {
	th, pool, _, _ := newTestThread(t, 3)
	rec := &recorder{}

	a := NewStream(pool, th.DispatchChunk)
	b := NewStream(pool, th.DispatchChunk)
	want := make([]int, 0, 20)
	for i := range 10 {
		a.Emit(rec.cmd(i))
		want = append(want, i)
	}
	a.Flush()
	for i := 100; i < 110; i++ {
		b.Emit(rec.cmd(i))
		want = append(want, i)
	}
	b.Flush()
	th.Synchronize()

	if len(rec.tags) != len(want) {
		t.Fatalf("executed %d commands, want %d", len(rec.tags), len(want))
	}
	for i := range want {
		if rec.tags[i] != want[i] {
			t.Fatalf("tags = %v, want %v", rec.tags, want)
		}
	}
	if got := th.Commands(); got != 20 {
		t.Errorf("Commands() = %d, want 20", got)
	}
}

func TestThreadDispatchChunksAtomic(t *testing.T) {
	th, pool, _, _ := newTestThread(t, 1)
	rec := &recorder{}

	const producers, perProducer = 8, 5
	var wg sync.WaitGroup
	for p := range producers {
		chunks := make([]*Chunk, perProducer)
		for i := range chunks {
			chunks[i] = pool.Get()
			if err := chunks[i].Append(rec.cmd(p)); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			chunks[i].Seal()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			th.DispatchChunks(chunks)
		}()
	}
	wg.Wait()
	th.Synchronize()

	if len(rec.tags) != producers*perProducer {
		t.Fatalf("executed %d commands, want %d", len(rec.tags), producers*perProducer)
	}
	for i := 0; i < len(rec.tags); i += perProducer {
		for j := i; j < i+perProducer; j++ {
			if rec.tags[j] != rec.tags[i] {
				t.Fatalf("chunks interleaved: %v", rec.tags)
			}
		}
	}
}

func TestThreadCloseDrains(t *testing.T) {
	soft := backend.NewSoftwareDevice(backend.SoftwareConfig{})
	defer soft.Destroy()
	dev := gpu.NewDevice(soft, 0)
	defer dev.Close()
	ctx, err := gpu.NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	defer ctx.Discard()

	pool := NewPool(2)
	th := NewThread(ctx, pool)
	rec := &recorder{}
	s := NewStream(pool, th.DispatchChunk)
	for i := range 5 {
		s.Emit(rec.cmd(i))
	}
	s.Flush()
	th.Close()

	if len(rec.tags) != 5 {
		t.Errorf("executed %d commands before close, want 5", len(rec.tags))
	}
	// Dispatch after close is dropped, Synchronize returns.
	s.Emit(rec.cmd(99))
	s.Flush()
	th.Synchronize()
	if len(rec.tags) != 5 {
		t.Errorf("command ran after close")
	}
}

func TestThreadReplaysDraws(t *testing.T) {
	th, pool, dev, soft := newTestThread(t, 8)

	vs, err := dev.CreateShader(&gpucore.ShaderDesc{Stage: gpucore.ShaderStageVertex, SPIRV: []uint32{1}})
	if err != nil {
		t.Fatalf("CreateShader() error = %v", err)
	}
	rt, err := dev.CreateImage(&gpucore.ImageDesc{
		Type: gpucore.ImageType2D, Format: gpucore.FormatRGBA8Unorm,
		Extent: gpucore.Extent3D{Width: 2, Height: 2, Depth: 1}, Layers: 1, MipLevels: 1,
		Samples: gpucore.SampleCount1, Usage: gpucore.ImageUsageColorAttachment,
		Layout: gpucore.ImageLayoutColorAttachment,
	})
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}

	var seq uint64
	s := NewStream(pool, th.DispatchChunk)
	s.Emit(SetShadersCommand{Vertex: vs})
	s.Emit(SetRenderTargetsCommand{Targets: gpu.Targets{Color: [gpucore.MaxColorTargets]*gpu.Image{rt}}})
	for i := range 20 {
		s.Emit(DrawCommand{VertexCount: uint32(i + 1), InstanceCount: 1})
	}
	s.Emit(SubmitCommand{Done: func(s uint64) { seq = s }})
	s.Flush()
	th.Synchronize()
	dev.Tracker().WaitFor(seq)

	trace := soft.Trace()
	if len(trace) != 20 {
		t.Fatalf("trace has %d events, want 20", len(trace))
	}
	for i, ev := range trace {
		if ev.Kind != backend.EventDraw || ev.Args[0] != uint32(i+1) {
			t.Fatalf("event %d = %v %v, want Draw with %d vertices", i, ev.Kind, ev.Args, i+1)
		}
	}
	if seq != 1 {
		t.Errorf("submit seq = %d, want 1", seq)
	}
}
