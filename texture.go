package d3d11

import (
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/gpu"
)

// TextureDesc describes a 1D, 2D or 3D texture.
type TextureDesc struct {
	Label     string
	Dimension gpucore.ImageType
	Format    gpucore.Format

	// Height and Depth default to 1. ArraySize defaults to 1.
	Width, Height, Depth uint32
	ArraySize            uint32

	// MipLevels of 0 selects the full chain, or one level for multisampled
	// textures.
	MipLevels uint32

	// SampleCount defaults to 1 and must be a power of two up to 64.
	SampleCount uint32

	Usage     Usage
	Bind      BindFlags
	CPUAccess CPUAccess
	Misc      MiscFlags
}

// Texture is an image resource.
type Texture struct {
	dev  *Device
	id   uuid.UUID
	desc TextureDesc
	img  *gpu.Image
	mode MapMode

	// shadow relays maps in MapModeBuffer. It holds one top-level
	// subresource.
	shadow *gpu.Buffer

	// Immediate context map bookkeeping.
	mapped    *gpu.BufferSlice
	mappedSub gpucore.Subresource
}

// CreateTexture creates a texture. initial, when not empty, holds one entry
// per subresource in subresource index order.
func (d *Device) CreateTexture(desc *TextureDesc, initial []SubresourceData) (*Texture, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	td := *desc
	if err := normalizeTextureDesc(&td); err != nil {
		return nil, err
	}
	if err := validateUsage(td.Usage, td.CPUAccess, td.Bind); err != nil {
		return nil, err
	}

	id := imageDesc(&td)
	if err := d.checkImageSupport(&td, id); err != nil {
		return nil, err
	}

	mode := DetermineMapMode(td.Usage, td.CPUAccess, d.linearSupported(id))
	if mode == MapModeDirect {
		id.Tiling = gpucore.TilingLinear
		id.Memory = gpucore.MemoryHostVisible | gpucore.MemoryHostCoherent | gpucore.MemoryHostCached
		id.Layout = gpucore.ImageLayoutGeneral
	} else {
		id.Memory = gpucore.MemoryDeviceLocal
		id.Layout = gpucore.OptimizeLayout(id.Usage)
	}

	subresources := int(td.MipLevels * td.ArraySize)
	if len(initial) != 0 && len(initial) != subresources {
		return nil, invalidArgf("d3d11: texture %q has %d subresources, got %d initial data entries",
			td.Label, subresources, len(initial))
	}
	if td.Usage == UsageImmutable && len(initial) == 0 {
		return nil, invalidArgf("d3d11: immutable texture %q needs initial data", td.Label)
	}

	img, err := d.gpu.CreateImage(id)
	if err != nil {
		return nil, unsupported(err, "texture %q: %s %s %dx%dx%d", td.Label, td.Dimension, td.Format, td.Width, td.Height, td.Depth)
	}
	tex := &Texture{
		dev:  d,
		id:   uuid.New(),
		desc: td,
		img:  img,
		mode: mode,
	}

	if mode == MapModeBuffer {
		tex.shadow, err = d.gpu.CreateBuffer(gpu.BufferInfo{
			Label: td.Label + " shadow",
			Size:  shadowSize(td.Format, id.Extent),
			Usage: gpucore.BufferUsageTransferSrc | gpucore.BufferUsageTransferDst,
		}, gpucore.MemoryHostVisible|gpucore.MemoryHostCoherent)
		if err != nil {
			img.Destroy()
			return nil, unsupported(err, "texture %q shadow buffer", td.Label)
		}
		tex.mapped = tex.shadow.Slice()
	}

	if err := d.initTexture(tex, initial); err != nil {
		tex.destroy()
		return nil, err
	}
	d.register(tex)
	slogger().Debug("d3d11: texture created",
		"label", td.Label, "format", td.Format, "mips", td.MipLevels, "layers", td.ArraySize, "mode", mode)
	return tex, nil
}

func normalizeTextureDesc(td *TextureDesc) error {
	td.Height = max(td.Height, 1)
	td.Depth = max(td.Depth, 1)
	td.ArraySize = max(td.ArraySize, 1)
	td.SampleCount = max(td.SampleCount, 1)

	if td.Width == 0 {
		return invalidArgf("d3d11: texture %q has zero width", td.Label)
	}
	if td.Format.Info().ElementSize == 0 {
		return invalidArgf("d3d11: texture %q has unknown format %s", td.Label, td.Format)
	}
	switch td.Dimension {
	case gpucore.ImageType1D:
		if td.Height != 1 || td.Depth != 1 {
			return invalidArgf("d3d11: 1D texture %q must have height and depth 1", td.Label)
		}
	case gpucore.ImageType2D:
		if td.Depth != 1 {
			return invalidArgf("d3d11: 2D texture %q must have depth 1", td.Label)
		}
	case gpucore.ImageType3D:
		if td.ArraySize != 1 {
			return invalidArgf("d3d11: 3D texture %q cannot be an array", td.Label)
		}
	default:
		return invalidArgf("d3d11: texture %q has unknown dimension %s", td.Label, td.Dimension)
	}
	if td.SampleCount > 64 || bits.OnesCount32(td.SampleCount) != 1 {
		return invalidArgf("d3d11: texture %q sample count %d is not a power of two up to 64", td.Label, td.SampleCount)
	}
	if td.Misc&MiscTextureCube != 0 && (td.Dimension != gpucore.ImageType2D || td.ArraySize%6 != 0) {
		return invalidArgf("d3d11: cube texture %q needs a 2D array of a multiple of six layers", td.Label)
	}

	extent := gpucore.Extent3D{Width: td.Width, Height: td.Height, Depth: td.Depth}
	if td.MipLevels == 0 {
		if td.SampleCount > 1 {
			td.MipLevels = 1
		} else {
			td.MipLevels = gpucore.MipLevelCount(extent)
		}
	}
	if td.MipLevels > gpucore.MipLevelCount(extent) {
		return invalidArgf("d3d11: texture %q has %d mip levels, at most %d fit",
			td.Label, td.MipLevels, gpucore.MipLevelCount(extent))
	}
	return nil
}

func imageDesc(td *TextureDesc) *gpucore.ImageDesc {
	id := &gpucore.ImageDesc{
		Label:     td.Label,
		Type:      td.Dimension,
		Format:    td.Format,
		Extent:    gpucore.Extent3D{Width: td.Width, Height: td.Height, Depth: td.Depth},
		Layers:    td.ArraySize,
		MipLevels: td.MipLevels,
		Samples:   gpucore.SampleCount(td.SampleCount),
		Usage:     imageUsage(td.Bind),
		Tiling:    gpucore.TilingOptimal,
	}
	if td.Misc&MiscTextureCube != 0 {
		id.Flags |= gpucore.ImageFlagCubeCompatible
	}
	if td.Dimension == gpucore.ImageType3D && td.Bind&BindRenderTarget != 0 {
		id.Flags |= gpucore.ImageFlag2DArrayCompatible
	}
	return id
}

func imageUsage(bind BindFlags) gpucore.ImageUsage {
	usage := gpucore.ImageUsageTransferSrc | gpucore.ImageUsageTransferDst
	if bind&BindShaderResource != 0 {
		usage |= gpucore.ImageUsageSampled
	}
	if bind&BindUnorderedAccess != 0 {
		usage |= gpucore.ImageUsageStorage
	}
	if bind&BindRenderTarget != 0 {
		usage |= gpucore.ImageUsageColorAttachment
	}
	if bind&BindDepthStencil != 0 {
		usage |= gpucore.ImageUsageDepthStencilAttachment
	}
	return usage
}

// checkImageSupport validates id against the optimal-tiling limits.
func (d *Device) checkImageSupport(td *TextureDesc, id *gpucore.ImageDesc) error {
	props, err := d.gpu.ImageFormatProperties(id.Format, id.Type, gpucore.TilingOptimal, id.Usage, id.Flags)
	if err != nil {
		return unsupported(err, "format %s for %s texture %q", id.Format, id.Type, td.Label)
	}
	if err := fitsLimits(id, props); err != nil {
		return unsupported(errors.Wrapf(err, "d3d11: texture %q", td.Label), "format %s", id.Format)
	}
	return nil
}

// fitsLimits reports the first limit id exceeds.
func fitsLimits(id *gpucore.ImageDesc, props gpucore.ImageFormatProperties) error {
	switch {
	case id.Extent.Width > props.MaxExtent.Width,
		id.Extent.Height > props.MaxExtent.Height,
		id.Extent.Depth > props.MaxExtent.Depth:
		return errors.Newf("extent %v exceeds %v", id.Extent, props.MaxExtent)
	case id.Layers > props.MaxArrayLayers:
		return errors.Newf("%d array layers exceed %d", id.Layers, props.MaxArrayLayers)
	case id.MipLevels > props.MaxMipLevels:
		return errors.Newf("%d mip levels exceed %d", id.MipLevels, props.MaxMipLevels)
	case id.Samples&props.SampleCounts == 0:
		return errors.Newf("sample count %d not in %b", id.Samples, props.SampleCounts)
	}
	return nil
}

// linearSupported reports whether id can be created with linear tiling.
func (d *Device) linearSupported(id *gpucore.ImageDesc) bool {
	props, err := d.gpu.ImageFormatProperties(id.Format, id.Type, gpucore.TilingLinear, id.Usage, id.Flags)
	return err == nil && fitsLimits(id, props) == nil
}

// shadowSize is the tightly packed size of the top mip level.
func shadowSize(format gpucore.Format, extent gpucore.Extent3D) uint64 {
	info := format.Info()
	blocks := gpucore.BlockCount(extent, info.BlockSize)
	return uint64(info.ElementSize) * uint64(blocks.Width) * uint64(blocks.Height) * uint64(blocks.Depth)
}

// ID implements Resource.
func (t *Texture) ID() uuid.UUID { return t.id }

// Label implements Resource.
func (t *Texture) Label() string { return t.desc.Label }

// Desc returns the creation description with defaults filled in.
func (t *Texture) Desc() TextureDesc { return t.desc }

// MapMode returns how maps reach the texture contents.
func (t *Texture) MapMode() MapMode { return t.mode }

// Device returns the device that created the texture.
func (t *Texture) Device() *Device { return t.dev }

// Image returns the backend image behind the texture.
func (t *Texture) Image() gpucore.Image { return t.img.Handle() }

// ShadowSize returns the size of the shadow buffer, or 0 when the texture
// has none.
func (t *Texture) ShadowSize() uint64 {
	if t.shadow == nil {
		return 0
	}
	return t.shadow.Info().Size
}

// Subresources returns the number of subresources.
func (t *Texture) Subresources() uint32 { return t.desc.MipLevels * t.desc.ArraySize }

// Subresource decodes a subresource index.
func (t *Texture) Subresource(index uint32) (gpucore.Subresource, error) {
	if index >= t.Subresources() {
		return gpucore.Subresource{}, invalidArgf("d3d11: subresource %d of texture %q out of range", index, t.desc.Label)
	}
	return gpucore.Subresource{
		Aspect:     t.aspect(),
		MipLevel:   index % t.desc.MipLevels,
		ArrayLayer: index / t.desc.MipLevels,
	}, nil
}

// SubresourceIndex encodes a mip level and array layer.
func (t *Texture) SubresourceIndex(mip, layer uint32) uint32 {
	return mip + layer*t.desc.MipLevels
}

func (t *Texture) aspect() gpucore.Aspect { return t.desc.Format.Info().Aspect }

// levelPitch returns the tightly packed row and slice pitch of a mip level
// and its depth in blocks.
func (t *Texture) levelPitch(mip uint32) (row, slice uint64, depth uint32) {
	info := t.desc.Format.Info()
	blocks := gpucore.BlockCount(t.img.MipLevelExtent(mip), info.BlockSize)
	row = uint64(info.ElementSize) * uint64(blocks.Width)
	slice = row * uint64(blocks.Height)
	return row, slice, blocks.Depth
}

func layers(sub gpucore.Subresource) gpucore.SubresourceLayers {
	return gpucore.SubresourceLayers{
		Aspect:         sub.Aspect,
		MipLevel:       sub.MipLevel,
		BaseArrayLayer: sub.ArrayLayer,
		LayerCount:     1,
	}
}

// Release destroys the texture once the GPU is done with it. It must be
// called from the goroutine driving the immediate context.
func (t *Texture) Release() { t.dev.release(t) }

func (t *Texture) tracked() tracked { return &t.img.Resource }
func (t *Texture) owner() *Device   { return t.dev }

func (t *Texture) destroy() {
	t.img.Destroy()
	if t.shadow != nil {
		t.shadow.Destroy()
	}
}
