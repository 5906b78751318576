package gpu

import (
	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

// VertexBinding is a vertex buffer bound to a slot.
type VertexBinding struct {
	Buffer *Buffer
	Offset uint64
	Stride uint32
}

// IndexBinding is the bound index buffer.
type IndexBinding struct {
	Buffer *Buffer
	Offset uint64
	Format gpucore.IndexFormat
}

// Targets are the bound render targets.
type Targets struct {
	Color [gpucore.MaxColorTargets]*Image
	Depth *Image
}

// State is the complete pipeline state of a context.
type State struct {
	Vertex   gpucore.Shader
	Fragment gpucore.Shader
	Compute  gpucore.Shader

	Topology     gpucore.Topology
	Raster       gpucore.RasterState
	DepthStencil gpucore.DepthStencilState
	Blend        [gpucore.MaxColorTargets]gpucore.BlendMode
	SampleMask   uint32

	BlendConstants [4]float32
	StencilRef     uint32

	VertexBuffers [gpucore.MaxVertexBuffers]VertexBinding
	IndexBuffer   IndexBinding
	Viewports     []gpucore.Viewport
	Scissors      []gpucore.Rect
	Targets       Targets
}

// DefaultState returns the state a freshly cleared context has.
func DefaultState() State {
	s := State{
		Topology: gpucore.TopologyTriangleList,
		Raster: gpucore.RasterState{
			Cull:      gpucore.CullBack,
			DepthClip: true,
		},
		DepthStencil: gpucore.DepthStencilState{
			DepthTest:    true,
			DepthWrite:   true,
			DepthCompare: gpucore.CompareLess,
		},
		SampleMask: ^uint32(0),
	}
	for i := range s.Blend {
		s.Blend[i] = gpucore.BlendMode{
			SrcColor:  gpucore.BlendOne,
			DstColor:  gpucore.BlendZero,
			SrcAlpha:  gpucore.BlendOne,
			DstAlpha:  gpucore.BlendZero,
			WriteMask: 0xf,
		}
	}
	return s
}

// Clone returns a copy that shares no slices with s.
func (s *State) Clone() State {
	c := *s
	c.Viewports = append([]gpucore.Viewport(nil), s.Viewports...)
	c.Scissors = append([]gpucore.Rect(nil), s.Scissors...)
	return c
}

type dirtyFlags uint32

const (
	dirtyPipeline dirtyFlags = 1 << iota
	dirtyVertexBuffers
	dirtyIndexBuffer
	dirtyViewports
	dirtyScissors
	dirtyBlendConstants
	dirtyStencilRef

	dirtyAll = dirtyPipeline | dirtyVertexBuffers | dirtyIndexBuffer |
		dirtyViewports | dirtyScissors | dirtyBlendConstants | dirtyStencilRef
)

// Context records commands into native command lists.
//
// It is owned by the execution thread. State changes are lazy: they are
// applied to the command buffer right before the draw that needs them, and
// re-applied after every rendering scope change and every new command list.
// A rendering scope is opened by the first draw after a target change and
// closed by anything that cannot run inside one.
//
// Native failures panic after being logged.
type Context struct {
	dev  *Device
	list *CommandList

	state     State
	dirty     dirtyFlags
	rendering bool
	active    Targets

	draws      uint64
	dispatches uint64
}

// NewContext creates a context with an open command list.
func NewContext(dev *Device) (*Context, error) {
	l, err := dev.CreateCommandList()
	if err != nil {
		return nil, err
	}
	return &Context{
		dev:   dev,
		list:  l,
		state: DefaultState(),
		dirty: dirtyAll,
	}, nil
}

// Device returns the device the context records for.
func (c *Context) Device() *Device { return c.dev }

// State returns a copy of the current state.
func (c *Context) State() State { return c.state.Clone() }

// Draws returns the number of draws recorded so far.
func (c *Context) Draws() uint64 { return c.draws }

// Dispatches returns the number of dispatches recorded so far.
func (c *Context) Dispatches() uint64 { return c.dispatches }

func fatal(err error, msg string) {
	slogger().Error(msg, "err", err)
	panic(errors.Wrap(err, msg))
}

// Flush ends the current command list, submits it and opens a new one. It
// returns the sequence number of the submission.
func (c *Context) Flush() uint64 {
	c.spill()
	if err := c.list.End(); err != nil {
		fatal(err, "gpu: flush")
	}
	seq, err := c.dev.Submit(c.list)
	if err != nil {
		fatal(err, "gpu: flush")
	}
	l, err := c.dev.CreateCommandList()
	if err != nil {
		fatal(err, "gpu: flush")
	}
	c.list = l
	c.dirty = dirtyAll
	slogger().Debug("gpu: submitted", "seq", seq)
	return seq
}

// Discard drops the open command list without submitting it. The context
// must not be used afterwards.
func (c *Context) Discard() {
	if c.list != nil {
		c.list.Discard()
		c.list = nil
	}
}

// SetState replaces the whole state.
func (c *Context) SetState(s State) {
	c.state = s.Clone()
	c.dirty = dirtyAll
	c.retarget()
}

// ResetState restores the default state.
func (c *Context) ResetState() {
	c.SetState(DefaultState())
}

// SetShaders binds the vertex, fragment and compute shaders.
func (c *Context) SetShaders(vs, fs, cs gpucore.Shader) {
	c.state.Vertex, c.state.Fragment, c.state.Compute = vs, fs, cs
	c.dirty |= dirtyPipeline
}

// SetPipelineState sets the fixed-function state.
func (c *Context) SetPipelineState(topology gpucore.Topology, raster gpucore.RasterState, ds gpucore.DepthStencilState, blend [gpucore.MaxColorTargets]gpucore.BlendMode, sampleMask uint32) {
	c.state.Topology = topology
	c.state.Raster = raster
	c.state.DepthStencil = ds
	c.state.Blend = blend
	c.state.SampleMask = sampleMask
	c.dirty |= dirtyPipeline
}

// SetBlendConstants sets the blend factor.
func (c *Context) SetBlendConstants(bc [4]float32) {
	c.state.BlendConstants = bc
	c.dirty |= dirtyBlendConstants
}

// SetStencilReference sets the stencil reference value.
func (c *Context) SetStencilReference(ref uint32) {
	c.state.StencilRef = ref
	c.dirty |= dirtyStencilRef
}

// BindVertexBuffers binds buffers to consecutive slots starting at first.
func (c *Context) BindVertexBuffers(first uint32, bindings []VertexBinding) {
	copy(c.state.VertexBuffers[first:], bindings)
	c.dirty |= dirtyVertexBuffers
}

// BindIndexBuffer binds the index buffer.
func (c *Context) BindIndexBuffer(b IndexBinding) {
	c.state.IndexBuffer = b
	c.dirty |= dirtyIndexBuffer
}

// SetViewports sets the viewports.
func (c *Context) SetViewports(vps []gpucore.Viewport) {
	c.state.Viewports = append(c.state.Viewports[:0], vps...)
	c.dirty |= dirtyViewports
}

// SetScissors sets the scissor rectangles.
func (c *Context) SetScissors(rects []gpucore.Rect) {
	c.state.Scissors = append(c.state.Scissors[:0], rects...)
	c.dirty |= dirtyScissors
}

// SetRenderTargets binds render targets. An open rendering scope on other
// targets is closed.
func (c *Context) SetRenderTargets(t Targets) {
	c.state.Targets = t
	c.dirty |= dirtyPipeline
	c.retarget()
}

func (c *Context) retarget() {
	if c.rendering && c.active != c.state.Targets {
		c.spill()
	}
}

// Draw records a non-indexed draw.
func (c *Context) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !c.prepareDraw(false) {
		return
	}
	c.list.cmd.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	c.draws++
}

// DrawIndexed records an indexed draw.
func (c *Context) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if !c.prepareDraw(true) {
		return
	}
	c.list.cmd.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	c.draws++
}

// Dispatch records a compute dispatch.
func (c *Context) Dispatch(x, y, z uint32) {
	if c.state.Compute == nil {
		slogger().Warn("gpu: dispatch without compute shader dropped")
		return
	}
	c.spill()
	p, err := c.dev.Pipeline(&gpucore.PipelineDesc{Compute: c.state.Compute})
	if err != nil {
		fatal(err, "gpu: dispatch")
	}
	c.list.cmd.BindPipeline(p)
	c.list.cmd.Dispatch(x, y, z)
	c.dirty |= dirtyPipeline
	c.dispatches++
}

func (c *Context) prepareDraw(indexed bool) bool {
	if c.state.Vertex == nil {
		slogger().Warn("gpu: draw without vertex shader dropped")
		return false
	}
	if indexed && c.state.IndexBuffer.Buffer == nil {
		slogger().Warn("gpu: indexed draw without index buffer dropped")
		return false
	}
	if !c.rendering {
		c.beginRendering()
	}
	c.applyState()
	return true
}

func (c *Context) pipelineDesc() gpucore.PipelineDesc {
	desc := gpucore.PipelineDesc{
		Vertex:       c.state.Vertex,
		Fragment:     c.state.Fragment,
		Topology:     c.state.Topology,
		Raster:       c.state.Raster,
		DepthStencil: c.state.DepthStencil,
		Blend:        c.state.Blend,
		SampleMask:   c.state.SampleMask,
		Samples:      gpucore.SampleCount1,
	}
	t := &c.state.Targets
	for i, img := range t.Color {
		if img != nil {
			desc.ColorFormats[i] = img.desc.Format
			desc.Samples = img.desc.Samples
		}
	}
	if t.Depth != nil {
		desc.DepthFormat = t.Depth.desc.Format
		desc.Samples = t.Depth.desc.Samples
	}
	return desc
}

func (c *Context) applyState() {
	cmd := c.list.cmd
	if c.dirty&dirtyPipeline != 0 {
		desc := c.pipelineDesc()
		p, err := c.dev.Pipeline(&desc)
		if err != nil {
			fatal(err, "gpu: draw")
		}
		cmd.BindPipeline(p)
	}
	if c.dirty&dirtyVertexBuffers != 0 {
		for slot, vb := range c.state.VertexBuffers {
			if vb.Buffer == nil {
				continue
			}
			s := vb.Buffer.Slice()
			c.list.Track(&s.Resource)
			cmd.BindVertexBuffer(uint32(slot), s.handle, vb.Offset, vb.Stride)
		}
	}
	if c.dirty&dirtyIndexBuffer != 0 && c.state.IndexBuffer.Buffer != nil {
		ib := c.state.IndexBuffer
		s := ib.Buffer.Slice()
		c.list.Track(&s.Resource)
		cmd.BindIndexBuffer(s.handle, ib.Offset, ib.Format)
	}
	if c.dirty&dirtyViewports != 0 && len(c.state.Viewports) > 0 {
		cmd.SetViewports(c.state.Viewports)
	}
	if c.dirty&dirtyScissors != 0 && len(c.state.Scissors) > 0 {
		cmd.SetScissors(c.state.Scissors)
	}
	if c.dirty&dirtyBlendConstants != 0 {
		cmd.SetBlendConstants(c.state.BlendConstants)
	}
	if c.dirty&dirtyStencilRef != 0 {
		cmd.SetStencilReference(c.state.StencilRef)
	}
	c.dirty = 0
}

func (c *Context) beginRendering() {
	var rt gpucore.RenderTargets
	t := c.state.Targets
	for i, img := range t.Color {
		if img == nil {
			continue
		}
		c.use(img, gpucore.ImageLayoutColorAttachment)
		rt.Color[i] = img.handle
	}
	if t.Depth != nil {
		c.use(t.Depth, gpucore.ImageLayoutDepthStencilAttachment)
		rt.Depth = t.Depth.handle
	}
	c.list.cmd.BeginRendering(&rt)
	c.rendering = true
	c.active = t
	c.dirty = dirtyAll
}

// spill closes an open rendering scope and returns its targets to their
// resting layouts.
func (c *Context) spill() {
	if !c.rendering {
		return
	}
	c.list.cmd.EndRendering()
	c.rendering = false
	for _, img := range c.active.Color {
		if img != nil {
			c.transition(img, img.rest)
		}
	}
	if c.active.Depth != nil {
		c.transition(c.active.Depth, c.active.Depth.rest)
	}
	c.active = Targets{}
	c.dirty = dirtyAll
}

func (c *Context) use(img *Image, layout gpucore.ImageLayout) {
	c.list.Track(&img.Resource)
	c.transition(img, layout)
}

func (c *Context) transition(img *Image, layout gpucore.ImageLayout) {
	if img.layout == layout {
		return
	}
	c.list.cmd.TransitionImage(img.handle, img.layout, layout)
	img.layout = layout
}

// InitializeImage moves a new image into its resting layout.
func (c *Context) InitializeImage(img *Image) {
	c.spill()
	c.use(img, img.rest)
}

// ClearColorImage clears one subresource range of a color image.
func (c *Context) ClearColorImage(img *Image, sub gpucore.SubresourceLayers, color gpucore.ClearColor) {
	c.spill()
	c.use(img, gpucore.ImageLayoutTransferDst)
	c.list.cmd.ClearColorImage(img.handle, sub, color)
	c.transition(img, img.rest)
}

// InvalidateBuffer makes s the current slice of b. Commands recorded from
// now on use s; commands recorded before keep the previous slice.
func (c *Context) InvalidateBuffer(b *Buffer, s *BufferSlice) {
	b.rename(s)
	for _, vb := range c.state.VertexBuffers {
		if vb.Buffer == b {
			c.dirty |= dirtyVertexBuffers
			break
		}
	}
	if c.state.IndexBuffer.Buffer == b {
		c.dirty |= dirtyIndexBuffer
	}
}

// UploadBuffer replaces the contents of b with data by renaming it to a
// fresh slice. Host-visible slices are written directly, others through a
// staging copy.
func (c *Context) UploadBuffer(b *Buffer, data []byte) {
	s, err := b.AllocSlice()
	if err != nil {
		fatal(err, "gpu: upload buffer")
	}
	if dst := s.Data(); dst != nil {
		copy(dst, data)
	} else {
		staging := c.stage(data)
		c.spill()
		c.list.Track(&s.Resource)
		c.list.cmd.CopyBuffer(s.handle, 0, staging, 0, uint64(len(data)))
	}
	c.InvalidateBuffer(b, s)
}

// UpdateBuffer writes data into the current slice of b at offset.
func (c *Context) UpdateBuffer(b *Buffer, offset uint64, data []byte) {
	staging := c.stage(data)
	c.spill()
	s := b.Slice()
	c.list.Track(&s.Resource)
	c.list.cmd.CopyBuffer(s.handle, offset, staging, 0, uint64(len(data)))
}

func (c *Context) stage(data []byte) gpucore.Buffer {
	staging, err := c.dev.CreateStaging(uint64(len(data)))
	if err != nil {
		fatal(err, "gpu: stage")
	}
	copy(staging.Data(), data)
	c.list.TrackStaging(staging)
	return staging
}

// CopyBuffer copies size bytes between the current slices of two buffers.
func (c *Context) CopyBuffer(dst *Buffer, dstOffset uint64, src *Buffer, srcOffset, size uint64) {
	c.spill()
	d, s := dst.Slice(), src.Slice()
	c.list.Track(&d.Resource)
	c.list.Track(&s.Resource)
	c.list.cmd.CopyBuffer(d.handle, dstOffset, s.handle, srcOffset, size)
}

// UploadImage writes tightly packed data into one subresource.
func (c *Context) UploadImage(img *Image, sub gpucore.SubresourceLayers, data []byte) {
	staging := c.stage(data)
	c.spill()
	c.use(img, gpucore.ImageLayoutTransferDst)
	extent := img.MipLevelExtent(sub.MipLevel)
	c.list.cmd.CopyBufferToImage(img.handle, sub, gpucore.Offset3D{}, extent, staging, 0)
	c.transition(img, img.rest)
}

// CopyBufferToImage copies from the current slice of src into a region of dst.
func (c *Context) CopyBufferToImage(dst *Image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D, src *Buffer, srcOffset uint64) {
	c.spill()
	s := src.Slice()
	c.list.Track(&s.Resource)
	c.use(dst, gpucore.ImageLayoutTransferDst)
	c.list.cmd.CopyBufferToImage(dst.handle, sub, offset, extent, s.handle, srcOffset)
	c.transition(dst, dst.rest)
}

// CopyImageToBuffer copies a region of src into the current slice of dst.
func (c *Context) CopyImageToBuffer(dst *Buffer, dstOffset uint64, src *Image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D) {
	c.spill()
	d := dst.Slice()
	c.list.Track(&d.Resource)
	c.use(src, gpucore.ImageLayoutTransferSrc)
	c.list.cmd.CopyImageToBuffer(d.handle, dstOffset, src.handle, sub, offset, extent)
	c.transition(src, src.rest)
}

// CopyImage copies every subresource of src into dst. Both images must have
// the same shape.
func (c *Context) CopyImage(dst, src *Image) {
	c.spill()
	c.use(src, gpucore.ImageLayoutTransferSrc)
	c.use(dst, gpucore.ImageLayoutTransferDst)
	aspect := src.desc.Format.Info().Aspect
	for mip := uint32(0); mip < src.desc.MipLevels; mip++ {
		sub := gpucore.SubresourceLayers{
			Aspect:     aspect,
			MipLevel:   mip,
			LayerCount: src.desc.Layers,
		}
		c.list.cmd.CopyImage(dst.handle, sub, src.handle, sub, src.MipLevelExtent(mip))
	}
	c.transition(src, src.rest)
	c.transition(dst, dst.rest)
}
