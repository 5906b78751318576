package gpucore

import "fmt"

// Extent3D is the size of an image or image region in texels.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// Offset3D is a texel offset into an image.
type Offset3D struct {
	X, Y, Z int32
}

// MipLevelExtent returns the extent of the given mip level.
func MipLevelExtent(extent Extent3D, level uint32) Extent3D {
	return Extent3D{
		Width:  max(1, extent.Width>>level),
		Height: max(1, extent.Height>>level),
		Depth:  max(1, extent.Depth>>level),
	}
}

// MipLevelCount returns the number of levels in a full mip chain.
func MipLevelCount(extent Extent3D) uint32 {
	size := max(extent.Width, extent.Height, extent.Depth)
	levels := uint32(1)
	for size > 1 {
		size >>= 1
		levels++
	}
	return levels
}

// BlockCount returns the number of format blocks covering an extent.
// Partial blocks count as whole blocks.
func BlockCount(extent, block Extent3D) Extent3D {
	return Extent3D{
		Width:  (extent.Width + block.Width - 1) / block.Width,
		Height: (extent.Height + block.Height - 1) / block.Height,
		Depth:  (extent.Depth + block.Depth - 1) / block.Depth,
	}
}

// ImageType is the dimensionality of an image.
type ImageType uint8

// Image types.
const (
	ImageType1D ImageType = iota
	ImageType2D
	ImageType3D
)

// String returns the name of the image type.
func (t ImageType) String() string {
	switch t {
	case ImageType1D:
		return "1D"
	case ImageType2D:
		return "2D"
	case ImageType3D:
		return "3D"
	default:
		return fmt.Sprintf("ImageType(%d)", t)
	}
}

// Tiling is the memory arrangement of image texels.
type Tiling uint8

// Image tilings.
const (
	// TilingOptimal is an implementation-defined layout, not CPU addressable.
	TilingOptimal Tiling = iota

	// TilingLinear is row-major and may be mapped directly.
	TilingLinear
)

// String returns the name of the tiling.
func (t Tiling) String() string {
	if t == TilingLinear {
		return "Linear"
	}
	return "Optimal"
}

// MemoryFlags are the properties of the memory backing a resource.
type MemoryFlags uint32

// Memory property flags.
const (
	MemoryDeviceLocal MemoryFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
)

// HostVisible reports whether the CPU can address the memory.
func (m MemoryFlags) HostVisible() bool {
	return m&MemoryHostVisible != 0
}

// BufferUsage is a bitmask of buffer usages.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
)

// ImageUsage is a bitmask of image usages.
type ImageUsage uint32

// Image usage flags.
const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
)

// ImageFlags are image creation flags.
type ImageFlags uint32

// Image creation flags.
const (
	ImageFlagMutableFormat ImageFlags = 1 << iota
	ImageFlagCubeCompatible
	ImageFlag2DArrayCompatible
)

// SampleCount is a bitmask of sample counts. A single count has exactly one
// bit set.
type SampleCount uint32

// Sample counts.
const (
	SampleCount1  SampleCount = 1
	SampleCount2  SampleCount = 2
	SampleCount4  SampleCount = 4
	SampleCount8  SampleCount = 8
	SampleCount16 SampleCount = 16
	SampleCount32 SampleCount = 32
	SampleCount64 SampleCount = 64
)

// ImageLayout is the layout an image is in for a given use.
type ImageLayout uint8

// Image layouts.
const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutPreinitialized
	ImageLayoutTransferSrc
	ImageLayoutTransferDst
	ImageLayoutShaderReadOnly
	ImageLayoutColorAttachment
	ImageLayoutDepthStencilAttachment
)

var imageLayoutNames = [...]string{
	ImageLayoutUndefined:              "Undefined",
	ImageLayoutGeneral:                "General",
	ImageLayoutPreinitialized:         "Preinitialized",
	ImageLayoutTransferSrc:            "TransferSrc",
	ImageLayoutTransferDst:            "TransferDst",
	ImageLayoutShaderReadOnly:         "ShaderReadOnly",
	ImageLayoutColorAttachment:        "ColorAttachment",
	ImageLayoutDepthStencilAttachment: "DepthStencilAttachment",
}

// String returns the name of the layout.
func (l ImageLayout) String() string {
	if int(l) < len(imageLayoutNames) {
		return imageLayoutNames[l]
	}
	return fmt.Sprintf("ImageLayout(%d)", l)
}

// OptimizeLayout picks the resting layout for an optimal-tiled image with
// the given usage. Images with a single attachment or sampling role rest in
// that role's layout, everything else rests in General.
func OptimizeLayout(usage ImageUsage) ImageLayout {
	usage &^= ImageUsageTransferSrc | ImageUsageTransferDst
	switch usage {
	case ImageUsageColorAttachment:
		return ImageLayoutColorAttachment
	case ImageUsageDepthStencilAttachment:
		return ImageLayoutDepthStencilAttachment
	case ImageUsageSampled:
		return ImageLayoutShaderReadOnly
	default:
		return ImageLayoutGeneral
	}
}

// Aspect selects the color, depth or stencil part of an image.
type Aspect uint8

// Image aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// Subresource identifies one mip level of one array layer.
type Subresource struct {
	Aspect     Aspect
	MipLevel   uint32
	ArrayLayer uint32
}

// SubresourceLayers identifies one mip level of a range of array layers.
type SubresourceLayers struct {
	Aspect         Aspect
	MipLevel       uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// SubresourceLayout describes where a subresource lives in image memory.
type SubresourceLayout struct {
	Offset     uint64
	Size       uint64
	RowPitch   uint64
	ArrayPitch uint64
	DepthPitch uint64
}

// ImageFormatProperties are the creation limits for a format query.
type ImageFormatProperties struct {
	MaxExtent      Extent3D
	MaxMipLevels   uint32
	MaxArrayLayers uint32
	SampleCounts   SampleCount
}

// ShaderStage is a programmable pipeline stage.
type ShaderStage uint8

// Shader stages.
const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
	ShaderStageCompute
)

// String returns the name of the stage.
func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageCompute:
		return "compute"
	default:
		return fmt.Sprintf("ShaderStage(%d)", s)
	}
}

// IndexFormat is the element type of an index buffer.
type IndexFormat uint8

// Index formats.
const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Viewport is a viewport rectangle with a depth range.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle.
type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// ClearColor is an RGBA clear value.
type ClearColor [4]float32

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label  string
	Size   uint64
	Usage  BufferUsage
	Memory MemoryFlags
}

// ImageDesc describes an image to create.
type ImageDesc struct {
	Label     string
	Type      ImageType
	Format    Format
	Flags     ImageFlags
	Extent    Extent3D
	Layers    uint32
	MipLevels uint32
	Samples   SampleCount
	Usage     ImageUsage
	Tiling    Tiling
	Memory    MemoryFlags
	Layout    ImageLayout
}

// ShaderDesc describes a shader module to create.
type ShaderDesc struct {
	Label string
	Stage ShaderStage
	SPIRV []uint32
}

// DeviceInfo identifies a device.
type DeviceInfo struct {
	Name    string
	Backend string
	Driver  string
}
