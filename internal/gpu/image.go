package gpu

import (
	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

// Image is a GPU image together with its current layout.
type Image struct {
	Resource
	dev    *Device
	handle gpucore.Image
	desc   gpucore.ImageDesc

	// layout is owned by whichever context records commands for the image:
	// the initialization context before first use, the execution thread after.
	layout gpucore.ImageLayout
	rest   gpucore.ImageLayout
}

// CreateImage creates an image. desc.Layout is the layout the image rests
// in between commands.
func (d *Device) CreateImage(desc *gpucore.ImageDesc) (*Image, error) {
	handle, err := d.backend.CreateImage(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "gpu: create %s %s image", desc.Type, desc.Format)
	}
	initial := gpucore.ImageLayoutUndefined
	if desc.Tiling == gpucore.TilingLinear {
		initial = gpucore.ImageLayoutPreinitialized
	}
	rest := desc.Layout
	if rest == gpucore.ImageLayoutUndefined {
		rest = gpucore.ImageLayoutGeneral
	}
	size := gpucore.ImageSize(desc.Format, desc.Extent, desc.MipLevels, desc.Layers) * uint64(desc.Samples)
	d.memory.add(desc.Memory, size)
	return &Image{
		dev:    d,
		handle: handle,
		desc:   *desc,
		layout: initial,
		rest:   rest,
	}, nil
}

// Handle returns the backend image.
func (i *Image) Handle() gpucore.Image { return i.handle }

// Desc returns the creation description.
func (i *Image) Desc() *gpucore.ImageDesc { return &i.desc }

// Layout returns the current layout.
func (i *Image) Layout() gpucore.ImageLayout { return i.layout }

// MipLevelExtent returns the extent of a mip level.
func (i *Image) MipLevelExtent(level uint32) gpucore.Extent3D {
	return gpucore.MipLevelExtent(i.desc.Extent, level)
}

// SubresourceLayout returns the memory layout of a linear image subresource.
func (i *Image) SubresourceLayout(sub gpucore.Subresource) gpucore.SubresourceLayout {
	return i.handle.SubresourceLayout(sub)
}

// Data returns the CPU view of a host-visible linear image, nil otherwise.
func (i *Image) Data() []byte { return i.handle.Data() }

// Destroy releases the image. The caller guarantees it is idle.
func (i *Image) Destroy() {
	i.handle.Destroy()
	size := gpucore.ImageSize(i.desc.Format, i.desc.Extent, i.desc.MipLevels, i.desc.Layers) * uint64(i.desc.Samples)
	i.dev.memory.sub(i.desc.Memory, size)
}
