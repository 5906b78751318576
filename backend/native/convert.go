// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/d3d11/gpucore"
)

// textureFormats maps core formats to WebGPU formats. Formats without an
// entry are reported as unsupported.
var textureFormats = map[gpucore.Format]gputypes.TextureFormat{
	gpucore.FormatR8Unorm:        gputypes.TextureFormatR8Unorm,
	gpucore.FormatRG8Unorm:       gputypes.TextureFormatRG8Unorm,
	gpucore.FormatRGBA8Unorm:     gputypes.TextureFormatRGBA8Unorm,
	gpucore.FormatRGBA8UnormSRGB: gputypes.TextureFormatRGBA8UnormSrgb,
	gpucore.FormatBGRA8Unorm:     gputypes.TextureFormatBGRA8Unorm,
	gpucore.FormatBGRA8UnormSRGB: gputypes.TextureFormatBGRA8UnormSrgb,
	gpucore.FormatR16Float:       gputypes.TextureFormatR16Float,
	gpucore.FormatRGBA16Float:    gputypes.TextureFormatRGBA16Float,
	gpucore.FormatR32Uint:        gputypes.TextureFormatR32Uint,
	gpucore.FormatR32Float:       gputypes.TextureFormatR32Float,
	gpucore.FormatRG32Float:      gputypes.TextureFormatRG32Float,
	gpucore.FormatRGBA32Float:    gputypes.TextureFormatRGBA32Float,
	gpucore.FormatD16Unorm:       gputypes.TextureFormatDepth16Unorm,
	gpucore.FormatD24UnormS8Uint: gputypes.TextureFormatDepth24PlusStencil8,
	gpucore.FormatD32Float:       gputypes.TextureFormatDepth32Float,
}

func textureFormat(f gpucore.Format) (gputypes.TextureFormat, bool) {
	tf, ok := textureFormats[f]
	return tf, ok
}

func textureUsage(u gpucore.ImageUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.ImageUsageTransferSrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.ImageUsageTransferDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.ImageUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.ImageUsageStorage != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	if u&(gpucore.ImageUsageColorAttachment|gpucore.ImageUsageDepthStencilAttachment) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

// layoutUsage maps an image layout to the texture usage that implies it.
// Undefined and General both map to no specific usage.
func layoutUsage(l gpucore.ImageLayout) gputypes.TextureUsage {
	switch l {
	case gpucore.ImageLayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case gpucore.ImageLayoutTransferDst:
		return gputypes.TextureUsageCopyDst
	case gpucore.ImageLayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case gpucore.ImageLayoutColorAttachment, gpucore.ImageLayoutDepthStencilAttachment:
		return gputypes.TextureUsageRenderAttachment
	case gpucore.ImageLayoutGeneral:
		return gputypes.TextureUsageStorageBinding
	default:
		return 0
	}
}

func bufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	// Host-visible buffers are mirrored through the queue and always
	// need both copy directions.
	out := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if u&gpucore.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&gpucore.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&gpucore.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&gpucore.BufferUsageStorage != 0 {
		out |= gputypes.BufferUsageStorage
	}
	if u&gpucore.BufferUsageIndirect != 0 {
		out |= gputypes.BufferUsageIndirect
	}
	return out
}

func textureDimension(t gpucore.ImageType) gputypes.TextureDimension {
	switch t {
	case gpucore.ImageType1D:
		return gputypes.TextureDimension1D
	case gpucore.ImageType3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

func textureExtent(desc *gpucore.ImageDesc) hal.Extent3D {
	e := hal.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, DepthOrArrayLayers: desc.Layers}
	if desc.Type == gpucore.ImageType3D {
		e.DepthOrArrayLayers = desc.Extent.Depth
	}
	return e
}

var compareFunctions = [...]gputypes.CompareFunction{
	gpucore.CompareNever:        gputypes.CompareFunctionNever,
	gpucore.CompareLess:         gputypes.CompareFunctionLess,
	gpucore.CompareEqual:        gputypes.CompareFunctionEqual,
	gpucore.CompareLessEqual:    gputypes.CompareFunctionLessEqual,
	gpucore.CompareGreater:      gputypes.CompareFunctionGreater,
	gpucore.CompareNotEqual:     gputypes.CompareFunctionNotEqual,
	gpucore.CompareGreaterEqual: gputypes.CompareFunctionGreaterEqual,
	gpucore.CompareAlways:       gputypes.CompareFunctionAlways,
}

var blendFactors = [...]gputypes.BlendFactor{
	gpucore.BlendZero:             gputypes.BlendFactorZero,
	gpucore.BlendOne:              gputypes.BlendFactorOne,
	gpucore.BlendSrcAlpha:         gputypes.BlendFactorSrcAlpha,
	gpucore.BlendOneMinusSrcAlpha: gputypes.BlendFactorOneMinusSrcAlpha,
	gpucore.BlendDstAlpha:         gputypes.BlendFactorDstAlpha,
	gpucore.BlendOneMinusDstAlpha: gputypes.BlendFactorOneMinusDstAlpha,
	gpucore.BlendConstant:         gputypes.BlendFactorConstant,
	gpucore.BlendOneMinusConstant: gputypes.BlendFactorOneMinusConstant,
}

var blendOperations = [...]gputypes.BlendOperation{
	gpucore.BlendOpAdd:             gputypes.BlendOperationAdd,
	gpucore.BlendOpSubtract:        gputypes.BlendOperationSubtract,
	gpucore.BlendOpReverseSubtract: gputypes.BlendOperationReverseSubtract,
	gpucore.BlendOpMin:             gputypes.BlendOperationMin,
	gpucore.BlendOpMax:             gputypes.BlendOperationMax,
}

func blendState(m gpucore.BlendMode) *gputypes.BlendState {
	if !m.Enable {
		return nil
	}
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: blendFactors[m.SrcColor],
			DstFactor: blendFactors[m.DstColor],
			Operation: blendOperations[m.ColorOp],
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: blendFactors[m.SrcAlpha],
			DstFactor: blendFactors[m.DstAlpha],
			Operation: blendOperations[m.AlphaOp],
		},
	}
}

func primitiveState(desc *gpucore.PipelineDesc) gputypes.PrimitiveState {
	ps := gputypes.PrimitiveState{
		Topology:  gputypes.PrimitiveTopologyTriangleList,
		FrontFace: gputypes.FrontFaceCW,
		CullMode:  gputypes.CullModeNone,
	}
	switch desc.Topology {
	case gpucore.TopologyTriangleStrip:
		ps.Topology = gputypes.PrimitiveTopologyTriangleStrip
	case gpucore.TopologyLineList:
		ps.Topology = gputypes.PrimitiveTopologyLineList
	case gpucore.TopologyLineStrip:
		ps.Topology = gputypes.PrimitiveTopologyLineStrip
	case gpucore.TopologyPointList:
		ps.Topology = gputypes.PrimitiveTopologyPointList
	}
	if desc.Raster.FrontCCW {
		ps.FrontFace = gputypes.FrontFaceCCW
	}
	switch desc.Raster.Cull {
	case gpucore.CullFront:
		ps.CullMode = gputypes.CullModeFront
	case gpucore.CullBack:
		ps.CullMode = gputypes.CullModeBack
	}
	return ps
}

func indexFormat(f gpucore.IndexFormat) gputypes.IndexFormat {
	if f == gpucore.IndexFormatUint32 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}
