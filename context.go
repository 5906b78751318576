package d3d11

import (
	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/cs"
	"github.com/gogpu/d3d11/internal/gpu"
)

// PipelineState is the fixed-function state of a context.
type PipelineState struct {
	Topology     gpucore.Topology
	Raster       gpucore.RasterState
	DepthStencil gpucore.DepthStencilState
	Blend        [gpucore.MaxColorTargets]gpucore.BlendMode
	SampleMask   uint32
}

// DefaultPipelineState returns the state of a cleared context.
func DefaultPipelineState() PipelineState {
	s := gpu.DefaultState()
	return PipelineState{
		Topology:     s.Topology,
		Raster:       s.Raster,
		DepthStencil: s.DepthStencil,
		Blend:        s.Blend,
		SampleMask:   s.SampleMask,
	}
}

// VertexBufferBinding binds a buffer to a vertex input slot.
type VertexBufferBinding struct {
	Buffer *Buffer
	Offset uint64
	Stride uint32
}

// deviceContext records calls into a command stream. It keeps a mirror of
// the state replay will have reached at the end of the stream, which is
// what a restoring ExecuteCommandList or FinishCommandList re-applies.
type deviceContext struct {
	dev    *Device
	stream *cs.Stream
	state  gpu.State

	// draws counts draws and dispatches since the last reset.
	draws int
}

func (c *deviceContext) emit(cmd cs.Command) {
	if cmd.Type().IsDraw() {
		c.draws++
	}
	c.stream.Emit(cmd)
}

// owns reports whether r was created on the context's device and logs when
// it was not.
func (c *deviceContext) owns(r Resource, op string) bool {
	if r == nil || r.owner() != c.dev {
		slogger().Error("d3d11: resource from another device ignored", "op", op)
		return false
	}
	return true
}

// SetShaders binds the vertex and fragment shaders. Either may be nil.
func (c *deviceContext) SetShaders(vs, fs *Shader) {
	if vs != nil && vs.Stage() != gpucore.ShaderStageVertex ||
		fs != nil && fs.Stage() != gpucore.ShaderStageFragment {
		slogger().Warn("d3d11: SetShaders with mismatched stages ignored")
		return
	}
	c.state.Vertex, c.state.Fragment = vs.native(), fs.native()
	c.emitShaders()
}

// SetComputeShader binds the compute shader.
func (c *deviceContext) SetComputeShader(s *Shader) {
	if s != nil && s.Stage() != gpucore.ShaderStageCompute {
		slogger().Warn("d3d11: SetComputeShader with a non-compute shader ignored")
		return
	}
	c.state.Compute = s.native()
	c.emitShaders()
}

func (c *deviceContext) emitShaders() {
	c.emit(cs.SetShadersCommand{
		Vertex:   c.state.Vertex,
		Fragment: c.state.Fragment,
		Compute:  c.state.Compute,
	})
}

// SetPipelineState sets the fixed-function state.
func (c *deviceContext) SetPipelineState(ps PipelineState) {
	c.state.Topology = ps.Topology
	c.state.Raster = ps.Raster
	c.state.DepthStencil = ps.DepthStencil
	c.state.Blend = ps.Blend
	c.state.SampleMask = ps.SampleMask
	c.emit(cs.SetPipelineStateCommand{
		Topology:     ps.Topology,
		Raster:       ps.Raster,
		DepthStencil: ps.DepthStencil,
		Blend:        ps.Blend,
		SampleMask:   ps.SampleMask,
	})
}

// SetBlendFactor sets the constant blend color.
func (c *deviceContext) SetBlendFactor(factor [4]float32) {
	c.state.BlendConstants = factor
	c.emit(cs.SetBlendFactorCommand{Factor: factor})
}

// SetStencilRef sets the stencil reference value.
func (c *deviceContext) SetStencilRef(ref uint32) {
	c.state.StencilRef = ref
	c.emit(cs.SetStencilRefCommand{Ref: ref})
}

// SetVertexBuffers binds buffers to consecutive slots starting at first.
// A nil Buffer unbinds its slot.
func (c *deviceContext) SetVertexBuffers(first uint32, bindings []VertexBufferBinding) {
	if int(first)+len(bindings) > gpucore.MaxVertexBuffers {
		slogger().Warn("d3d11: SetVertexBuffers beyond the last slot ignored", "first", first, "count", len(bindings))
		return
	}
	vb := make([]gpu.VertexBinding, len(bindings))
	for i, b := range bindings {
		if b.Buffer == nil {
			continue
		}
		if !c.owns(b.Buffer, "SetVertexBuffers") {
			return
		}
		vb[i] = gpu.VertexBinding{Buffer: b.Buffer.buf, Offset: b.Offset, Stride: b.Stride}
	}
	copy(c.state.VertexBuffers[first:], vb)
	c.emit(cs.SetVertexBuffersCommand{First: first, Bindings: vb})
}

// SetIndexBuffer binds the index buffer. A nil buffer unbinds it.
func (c *deviceContext) SetIndexBuffer(b *Buffer, offset uint64, format gpucore.IndexFormat) {
	var ib gpu.IndexBinding
	if b != nil {
		if !c.owns(b, "SetIndexBuffer") {
			return
		}
		ib = gpu.IndexBinding{Buffer: b.buf, Offset: offset, Format: format}
	}
	c.state.IndexBuffer = ib
	c.emit(cs.SetIndexBufferCommand{Binding: ib})
}

// SetViewports sets the viewports.
func (c *deviceContext) SetViewports(viewports []gpucore.Viewport) {
	if len(viewports) > gpucore.MaxViewports {
		slogger().Warn("d3d11: too many viewports ignored", "count", len(viewports))
		return
	}
	vps := append([]gpucore.Viewport(nil), viewports...)
	c.state.Viewports = vps
	c.emit(cs.SetViewportsCommand{Viewports: vps})
}

// SetScissors sets the scissor rectangles.
func (c *deviceContext) SetScissors(rects []gpucore.Rect) {
	if len(rects) > gpucore.MaxViewports {
		slogger().Warn("d3d11: too many scissor rectangles ignored", "count", len(rects))
		return
	}
	rs := append([]gpucore.Rect(nil), rects...)
	c.state.Scissors = rs
	c.emit(cs.SetScissorsCommand{Rects: rs})
}

// SetRenderTargets binds color targets and an optional depth target.
func (c *deviceContext) SetRenderTargets(colors []*Texture, depth *Texture) {
	if len(colors) > gpucore.MaxColorTargets {
		slogger().Warn("d3d11: too many render targets ignored", "count", len(colors))
		return
	}
	var t gpu.Targets
	for i, tex := range colors {
		if tex == nil {
			continue
		}
		if !c.owns(tex, "SetRenderTargets") {
			return
		}
		if tex.desc.Bind&BindRenderTarget == 0 {
			slogger().Warn("d3d11: texture without render target binding ignored", "label", tex.desc.Label)
			return
		}
		t.Color[i] = tex.img
	}
	if depth != nil {
		if !c.owns(depth, "SetRenderTargets") {
			return
		}
		if depth.desc.Bind&BindDepthStencil == 0 {
			slogger().Warn("d3d11: texture without depth stencil binding ignored", "label", depth.desc.Label)
			return
		}
		t.Depth = depth.img
	}
	c.state.Targets = t
	c.emit(cs.SetRenderTargetsCommand{Targets: t})
}

// ClearRenderTarget clears the top mip level of every layer of tex.
func (c *deviceContext) ClearRenderTarget(tex *Texture, color [4]float32) {
	if !c.owns(tex, "ClearRenderTarget") {
		return
	}
	if tex.desc.Format.IsDepthStencil() {
		slogger().Warn("d3d11: ClearRenderTarget on a depth format ignored", "label", tex.desc.Label)
		return
	}
	c.emit(cs.ClearColorCommand{
		Image: tex.img,
		Sub: gpucore.SubresourceLayers{
			Aspect:     gpucore.AspectColor,
			LayerCount: tex.desc.ArraySize,
		},
		Color: color,
	})
}

// Draw records a non-indexed draw.
func (c *deviceContext) Draw(vertexCount, firstVertex uint32) {
	c.DrawInstanced(vertexCount, 1, firstVertex, 0)
}

// DrawInstanced records an instanced draw.
func (c *deviceContext) DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.emit(cs.DrawCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

// DrawIndexed records an indexed draw.
func (c *deviceContext) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) {
	c.DrawIndexedInstanced(indexCount, 1, firstIndex, vertexOffset, 0)
}

// DrawIndexedInstanced records an instanced indexed draw.
func (c *deviceContext) DrawIndexedInstanced(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.emit(cs.DrawIndexedCommand{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		VertexOffset:  vertexOffset,
		FirstInstance: firstInstance,
	})
}

// Dispatch records a compute dispatch.
func (c *deviceContext) Dispatch(x, y, z uint32) {
	c.emit(cs.DispatchCommand{X: x, Y: y, Z: z})
}

// CopyResource copies the whole contents of src into dst. Both must be
// buffers of the same size or textures of the same shape and format.
func (c *deviceContext) CopyResource(dst, src Resource) {
	if !c.owns(dst, "CopyResource") || !c.owns(src, "CopyResource") {
		return
	}
	switch d := dst.(type) {
	case *Buffer:
		s, ok := src.(*Buffer)
		if !ok || s.desc.Size != d.desc.Size {
			slogger().Warn("d3d11: CopyResource between mismatched buffers ignored", "dst", d.Label(), "src", src.Label())
			return
		}
		c.emit(cs.CopyBufferCommand{Dst: d.buf, Src: s.buf, Size: d.desc.Size})
	case *Texture:
		s, ok := src.(*Texture)
		if !ok || !sameShape(d, s) {
			slogger().Warn("d3d11: CopyResource between mismatched textures ignored", "dst", d.Label(), "src", src.Label())
			return
		}
		c.emit(cs.CopyImageCommand{Dst: d.img, Src: s.img})
	}
}

func sameShape(a, b *Texture) bool {
	return a.desc.Dimension == b.desc.Dimension &&
		a.desc.Format == b.desc.Format &&
		a.desc.Width == b.desc.Width &&
		a.desc.Height == b.desc.Height &&
		a.desc.Depth == b.desc.Depth &&
		a.desc.ArraySize == b.desc.ArraySize &&
		a.desc.MipLevels == b.desc.MipLevels &&
		a.desc.SampleCount == b.desc.SampleCount
}

// UpdateSubresource replaces the contents of one subresource. Buffers have
// the single subresource 0 and accept data up to their size. Texture data
// must be tightly packed.
func (c *deviceContext) UpdateSubresource(dst Resource, sub uint32, data []byte) {
	if !c.owns(dst, "UpdateSubresource") {
		return
	}
	switch d := dst.(type) {
	case *Buffer:
		if sub != 0 || uint64(len(data)) > d.desc.Size {
			slogger().Warn("d3d11: UpdateSubresource out of buffer bounds ignored", "label", d.Label(), "size", len(data))
			return
		}
		c.emit(cs.UpdateBufferCommand{Buffer: d.buf, Data: append([]byte(nil), data...)})
	case *Texture:
		s, err := d.Subresource(sub)
		if err != nil {
			slogger().Warn("d3d11: UpdateSubresource ignored", "err", err)
			return
		}
		_, slice, depth := d.levelPitch(s.MipLevel)
		if uint64(len(data)) != slice*uint64(depth) {
			slogger().Warn("d3d11: UpdateSubresource with wrong data size ignored",
				"label", d.Label(), "size", len(data), "want", slice*uint64(depth))
			return
		}
		c.emit(cs.UploadImageCommand{Image: d.img, Sub: layers(s), Data: append([]byte(nil), data...)})
	}
}

// ClearState restores the default state.
func (c *deviceContext) ClearState() {
	c.state = gpu.DefaultState()
	c.emit(cs.ResetStateCommand{})
}

// restoreState re-applies the mirrored state.
func (c *deviceContext) restoreState() {
	c.emit(cs.SetStateCommand{State: c.state.Clone()})
}

// PipelineState returns the fixed-function state recorded so far.
func (c *deviceContext) PipelineState() PipelineState {
	return PipelineState{
		Topology:     c.state.Topology,
		Raster:       c.state.Raster,
		DepthStencil: c.state.DepthStencil,
		Blend:        c.state.Blend,
		SampleMask:   c.state.SampleMask,
	}
}

// checkMap validates a map request against the resource's usage.
func checkMap(label string, usage Usage, cpu CPUAccess, mapType MapType, flags MapFlags) error {
	if flags&^MapFlagDoNotWait != 0 {
		return invalidArgf("d3d11: unknown map flags %#x for %q", uint32(flags), label)
	}
	if cpu == 0 {
		return invalidArgf("d3d11: %q has no CPU access", label)
	}
	switch mapType {
	case MapRead, MapWrite, MapReadWrite:
	case MapWriteDiscard, MapWriteNoOverwrite:
		if usage != UsageDynamic {
			return invalidArgf("d3d11: %s map of %s resource %q", mapType, usage, label)
		}
	default:
		return invalidArgf("d3d11: unknown map type %s", mapType)
	}
	if mapType.reads() && cpu&CPUAccessRead == 0 {
		return invalidArgf("d3d11: %s map of %q without read access", mapType, label)
	}
	if mapType.writes() && cpu&CPUAccessWrite == 0 {
		return invalidArgf("d3d11: %s map of %q without write access", mapType, label)
	}
	return nil
}

// mapInfo returns the checkMap inputs of r.
func mapInfo(r Resource) (label string, usage Usage, cpu CPUAccess) {
	switch t := r.(type) {
	case *Buffer:
		return t.desc.Label, t.desc.Usage, t.desc.CPUAccess
	case *Texture:
		return t.desc.Label, t.desc.Usage, t.desc.CPUAccess
	}
	return "", 0, 0
}
