package d3d11

import (
	"github.com/google/uuid"

	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/gpu"
)

// BufferDesc describes a buffer.
type BufferDesc struct {
	Label     string
	Size      uint64
	Usage     Usage
	Bind      BindFlags
	CPUAccess CPUAccess
}

// Buffer is a linear resource.
//
// Buffers with CPU access live in host-visible memory. A discard map renames
// the buffer to a fresh physical slice so it never waits for the GPU.
type Buffer struct {
	dev  *Device
	id   uuid.UUID
	desc BufferDesc
	buf  *gpu.Buffer

	// mapped is the slice the immediate context handed out last. Only the
	// immediate context touches it.
	mapped *gpu.BufferSlice
}

// CreateBuffer creates a buffer. initial, when not nil, provides the
// contents; it is required for immutable buffers.
func (d *Device) CreateBuffer(desc *BufferDesc, initial *SubresourceData) (*Buffer, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, invalidArgf("d3d11: buffer %q has zero size", desc.Label)
	}
	if err := validateUsage(desc.Usage, desc.CPUAccess, desc.Bind); err != nil {
		return nil, err
	}
	if desc.Usage == UsageImmutable && initial == nil {
		return nil, invalidArgf("d3d11: immutable buffer %q needs initial data", desc.Label)
	}
	if initial != nil && uint64(len(initial.Data)) < desc.Size {
		return nil, invalidArgf("d3d11: buffer %q initial data is %d bytes, want %d",
			desc.Label, len(initial.Data), desc.Size)
	}

	memory := gpucore.MemoryDeviceLocal
	if desc.CPUAccess != 0 {
		memory = gpucore.MemoryHostVisible | gpucore.MemoryHostCoherent
		if desc.CPUAccess&CPUAccessRead != 0 {
			memory |= gpucore.MemoryHostCached
		}
	}
	b, err := d.gpu.CreateBuffer(gpu.BufferInfo{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc.Bind),
	}, memory)
	if err != nil {
		return nil, unsupported(err, "buffer %q of %d bytes", desc.Label, desc.Size)
	}

	buf := &Buffer{
		dev:    d,
		id:     uuid.New(),
		desc:   *desc,
		buf:    b,
		mapped: b.Slice(),
	}
	if initial != nil {
		d.initBuffer(b, initial.Data[:desc.Size])
	}
	d.register(buf)
	slogger().Debug("d3d11: buffer created", "label", desc.Label, "size", desc.Size, "usage", desc.Usage)
	return buf, nil
}

func bufferUsage(bind BindFlags) gpucore.BufferUsage {
	usage := gpucore.BufferUsageTransferSrc | gpucore.BufferUsageTransferDst
	if bind&BindVertexBuffer != 0 {
		usage |= gpucore.BufferUsageVertex
	}
	if bind&BindIndexBuffer != 0 {
		usage |= gpucore.BufferUsageIndex
	}
	if bind&BindConstantBuffer != 0 {
		usage |= gpucore.BufferUsageUniform
	}
	if bind&(BindShaderResource|BindUnorderedAccess) != 0 {
		usage |= gpucore.BufferUsageStorage
	}
	return usage
}

// validateUsage checks the usage, CPU access and bind flag combination.
func validateUsage(usage Usage, cpu CPUAccess, bind BindFlags) error {
	switch usage {
	case UsageDefault, UsageImmutable:
		if cpu != 0 {
			return invalidArgf("d3d11: %s resources have no CPU access", usage)
		}
	case UsageDynamic:
		if cpu != CPUAccessWrite {
			return invalidArgf("d3d11: dynamic resources need write-only CPU access")
		}
	case UsageStaging:
		if cpu == 0 {
			return invalidArgf("d3d11: staging resources need CPU access")
		}
		if bind != 0 {
			return invalidArgf("d3d11: staging resources cannot be bound")
		}
	default:
		return invalidArgf("d3d11: unknown usage %s", usage)
	}
	return nil
}

// ID implements Resource.
func (b *Buffer) ID() uuid.UUID { return b.id }

// Label implements Resource.
func (b *Buffer) Label() string { return b.desc.Label }

// Desc returns the creation description.
func (b *Buffer) Desc() BufferDesc { return b.desc }

// Size returns the size in bytes.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Slices returns the number of physical slices allocated by renaming.
func (b *Buffer) Slices() int { return b.buf.SliceCount() }

// Release destroys the buffer once the GPU is done with it. It must be
// called from the goroutine driving the immediate context.
func (b *Buffer) Release() { b.dev.release(b) }

func (b *Buffer) tracked() tracked { return b.buf }
func (b *Buffer) owner() *Device   { return b.dev }
func (b *Buffer) destroy()         { b.buf.Destroy() }
