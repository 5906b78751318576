package gpucore

import "fmt"

// Format is a texel format.
type Format uint32

// Texel formats.
const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatRGBA8UnormSRGB
	FormatBGRA8Unorm
	FormatBGRA8UnormSRGB
	FormatR16Float
	FormatRGBA16Float
	FormatR32Uint
	FormatR32Float
	FormatRG32Float
	FormatRGBA32Float
	FormatD16Unorm
	FormatD24UnormS8Uint
	FormatD32Float
	FormatBC1RGBAUnorm
	FormatBC2RGBAUnorm
	FormatBC3RGBAUnorm
	FormatBC4RUnorm
	FormatBC5RGUnorm
	FormatBC7RGBAUnorm
	formatCount
)

// FormatInfo describes the memory footprint of a format. For block
// compressed formats ElementSize is the size of one block.
type FormatInfo struct {
	Name        string
	ElementSize uint32
	BlockSize   Extent3D
	Aspect      Aspect
}

// Compressed reports whether the format stores texels in blocks larger
// than one texel.
func (i FormatInfo) Compressed() bool {
	return i.BlockSize.Width > 1 || i.BlockSize.Height > 1
}

var (
	texel = Extent3D{Width: 1, Height: 1, Depth: 1}
	block = Extent3D{Width: 4, Height: 4, Depth: 1}
)

var formatInfos = [formatCount]FormatInfo{
	FormatUndefined:      {Name: "Undefined"},
	FormatR8Unorm:        {"R8Unorm", 1, texel, AspectColor},
	FormatRG8Unorm:       {"RG8Unorm", 2, texel, AspectColor},
	FormatRGBA8Unorm:     {"RGBA8Unorm", 4, texel, AspectColor},
	FormatRGBA8UnormSRGB: {"RGBA8UnormSRGB", 4, texel, AspectColor},
	FormatBGRA8Unorm:     {"BGRA8Unorm", 4, texel, AspectColor},
	FormatBGRA8UnormSRGB: {"BGRA8UnormSRGB", 4, texel, AspectColor},
	FormatR16Float:       {"R16Float", 2, texel, AspectColor},
	FormatRGBA16Float:    {"RGBA16Float", 8, texel, AspectColor},
	FormatR32Uint:        {"R32Uint", 4, texel, AspectColor},
	FormatR32Float:       {"R32Float", 4, texel, AspectColor},
	FormatRG32Float:      {"RG32Float", 8, texel, AspectColor},
	FormatRGBA32Float:    {"RGBA32Float", 16, texel, AspectColor},
	FormatD16Unorm:       {"D16Unorm", 2, texel, AspectDepth},
	FormatD24UnormS8Uint: {"D24UnormS8Uint", 4, texel, AspectDepth | AspectStencil},
	FormatD32Float:       {"D32Float", 4, texel, AspectDepth},
	FormatBC1RGBAUnorm:   {"BC1RGBAUnorm", 8, block, AspectColor},
	FormatBC2RGBAUnorm:   {"BC2RGBAUnorm", 16, block, AspectColor},
	FormatBC3RGBAUnorm:   {"BC3RGBAUnorm", 16, block, AspectColor},
	FormatBC4RUnorm:      {"BC4RUnorm", 8, block, AspectColor},
	FormatBC5RGUnorm:     {"BC5RGUnorm", 16, block, AspectColor},
	FormatBC7RGBAUnorm:   {"BC7RGBAUnorm", 16, block, AspectColor},
}

// Info returns the format description. Unknown formats return the zero
// FormatInfo.
func (f Format) Info() FormatInfo {
	if f < formatCount {
		return formatInfos[f]
	}
	return FormatInfo{}
}

// String returns the name of the format.
func (f Format) String() string {
	if f < formatCount {
		return formatInfos[f].Name
	}
	return fmt.Sprintf("Format(%d)", f)
}

// IsDepthStencil reports whether the format has a depth or stencil aspect.
func (f Format) IsDepthStencil() bool {
	return f.Info().Aspect&(AspectDepth|AspectStencil) != 0
}

// LinearLayout computes the tightly packed layout of one subresource of an
// image of the given format and top-level extent. Subresources are stored
// layer-major, then mip level.
func LinearLayout(format Format, extent Extent3D, mipLevels uint32, sub Subresource) SubresourceLayout {
	info := format.Info()
	var offset, layerSize uint64
	var out SubresourceLayout
	for level := range mipLevels {
		blocks := BlockCount(MipLevelExtent(extent, level), info.BlockSize)
		row := uint64(info.ElementSize) * uint64(blocks.Width)
		slice := row * uint64(blocks.Height)
		size := slice * uint64(blocks.Depth)
		if level == sub.MipLevel {
			out = SubresourceLayout{
				Offset:     layerSize,
				Size:       size,
				RowPitch:   row,
				DepthPitch: slice,
			}
		}
		layerSize += size
	}
	offset = layerSize * uint64(sub.ArrayLayer)
	out.Offset += offset
	out.ArrayPitch = layerSize
	return out
}

// ImageSize returns the total tightly packed size of all subresources.
func ImageSize(format Format, extent Extent3D, mipLevels, layers uint32) uint64 {
	return LinearLayout(format, extent, mipLevels, Subresource{}).ArrayPitch * uint64(layers)
}
