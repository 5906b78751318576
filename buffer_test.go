package d3d11

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/d3d11/backend"
)

func TestCreateBufferValidation(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})

	tests := []struct {
		name    string
		desc    BufferDesc
		initial *SubresourceData
		want    error
	}{
		{"zero size", BufferDesc{Size: 0, Bind: BindVertexBuffer}, nil, ErrInvalidArg},
		{"default with cpu access", BufferDesc{Size: 16, CPUAccess: CPUAccessWrite}, nil, ErrInvalidArg},
		{"immutable without data", BufferDesc{Size: 16, Usage: UsageImmutable, Bind: BindIndexBuffer}, nil, ErrInvalidArg},
		{"dynamic read", BufferDesc{Size: 16, Usage: UsageDynamic, CPUAccess: CPUAccessRead}, nil, ErrInvalidArg},
		{"dynamic no access", BufferDesc{Size: 16, Usage: UsageDynamic}, nil, ErrInvalidArg},
		{"staging bound", BufferDesc{Size: 16, Usage: UsageStaging, CPUAccess: CPUAccessRead, Bind: BindConstantBuffer}, nil, ErrInvalidArg},
		{"staging no access", BufferDesc{Size: 16, Usage: UsageStaging}, nil, ErrInvalidArg},
		{"unknown usage", BufferDesc{Size: 16, Usage: Usage(7)}, nil, ErrInvalidArg},
		{"short initial data", BufferDesc{Size: 16}, &SubresourceData{Data: make([]byte, 8)}, ErrInvalidArg},
		{"valid dynamic", BufferDesc{Size: 16, Usage: UsageDynamic, CPUAccess: CPUAccessWrite, Bind: BindVertexBuffer}, nil, nil},
		{"valid immutable", BufferDesc{Size: 4, Usage: UsageImmutable, Bind: BindConstantBuffer}, &SubresourceData{Data: []byte{1, 2, 3, 4}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dev.CreateBuffer(&tt.desc, tt.initial)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("CreateBuffer() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateBuffer() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBufferInitialData(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	src := testBuffer(t, dev, BufferDesc{Label: "src", Size: 16, Bind: BindVertexBuffer}, want)
	if src.buf.Memory().HostVisible() {
		t.Fatalf("default buffer is host visible")
	}
	staging := testBuffer(t, dev, BufferDesc{
		Label:     "readback",
		Size:      16,
		Usage:     UsageStaging,
		CPUAccess: CPUAccessRead,
	}, nil)

	ctx := dev.ImmediateContext()
	ctx.CopyResource(staging, src)
	m, err := ctx.Map(staging, 0, MapRead, 0)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if !bytes.Equal(m.Data, want) {
		t.Errorf("readback = %v, want %v", m.Data, want)
	}
	if m.RowPitch != 16 || m.DepthPitch != 16 {
		t.Errorf("pitches = %d/%d, want 16/16", m.RowPitch, m.DepthPitch)
	}
	ctx.Unmap(staging, 0)
}

func TestBufferDiscardRenames(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})
	ctx := dev.ImmediateContext()
	setupDraw(t, dev, ctx, testTarget(t, dev))

	vb := testBuffer(t, dev, BufferDesc{
		Label:     "vertices",
		Size:      64,
		Usage:     UsageDynamic,
		CPUAccess: CPUAccessWrite,
		Bind:      BindVertexBuffer,
	}, nil)
	ctx.SetVertexBuffers(0, []VertexBufferBinding{{Buffer: vb, Stride: 16}})

	first, err := ctx.Map(vb, 0, MapWriteDiscard, 0)
	if err != nil {
		t.Fatalf("Map(discard) error = %v", err)
	}
	first.Data[0] = 0xaa
	ctx.Unmap(vb, 0)
	ctx.Draw(4, 0)

	second, err := ctx.Map(vb, 0, MapWriteDiscard, 0)
	if err != nil {
		t.Fatalf("Map(discard) error = %v", err)
	}
	if &second.Data[0] == &first.Data[0] {
		t.Errorf("discard returned memory still referenced by a pending draw")
	}
	if first.Data[0] != 0xaa {
		t.Errorf("discard modified the previous contents")
	}
	ctx.Unmap(vb, 0)

	again, err := ctx.Map(vb, 0, MapWriteNoOverwrite, 0)
	if err != nil {
		t.Fatalf("Map(no-overwrite) error = %v", err)
	}
	if &again.Data[0] != &second.Data[0] {
		t.Errorf("no-overwrite did not return the memory of the last discard")
	}
	ctx.Unmap(vb, 0)
	ctx.Draw(4, 0)
	finish(dev)

	if vb.Slices() < 2 {
		t.Errorf("Slices() = %d, want at least 2", vb.Slices())
	}
	ds := draws(dev.Backend().(*backend.SoftwareDevice).Trace())
	if len(ds) != 2 {
		t.Fatalf("got %d draws, want 2", len(ds))
	}
	if ds[0].VertexBuffer == ds[1].VertexBuffer {
		t.Errorf("both draws read the same physical buffer")
	}
	if got := backend.BufferBytes(ds[0].VertexBuffer)[0]; got != 0xaa {
		t.Errorf("first draw saw %#x, want 0xaa", got)
	}
}

func TestReleaseBuffer(t *testing.T) {
	dev, _ := newTestDevice(t, backend.SoftwareConfig{})
	ctx := dev.ImmediateContext()

	a := testBuffer(t, dev, BufferDesc{Size: 32}, make([]byte, 32))
	b := testBuffer(t, dev, BufferDesc{Size: 32}, nil)
	ctx.CopyResource(b, a)
	a.Release()
	if dev.IsInUse(a) {
		t.Errorf("released buffer still in use")
	}
	// A second release is harmless.
	a.Release()
	b.Release()
}
