// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/d3d11/gpucore"
)

type cbState uint8

const (
	cbInitial cbState = iota
	cbRecording
	cbExecutable
	cbPending
	cbRetired
)

// Errors recorded while encoding. They surface from End.
var (
	errNotRendering = errors.New("native: draw outside of a rendering scope")
	errRendering    = errors.New("native: command not allowed inside a rendering scope")
	errNotRecording = errors.New("native: command buffer is not recording")
)

// commandBuffer encodes straight into a HAL command encoder. Render state
// is cached and applied to the open render pass before each draw.
type commandBuffer struct {
	dev   *Device
	enc   hal.CommandEncoder
	raw   hal.CommandBuffer
	state cbState
	err   error

	pass  hal.RenderPassEncoder
	dirty bool

	render   *pipeline
	compute  *pipeline
	vertex   [gpucore.MaxVertexBuffers]vertexBinding
	index    *buffer
	indexOff uint64
	indexFmt gpucore.IndexFormat
	viewport *gpucore.Viewport
	scissor  *gpucore.Rect
	blend    [4]float32
	stencil  uint32

	uploads   []*buffer
	readbacks []*buffer
	seen      map[*buffer]uint8
}

type vertexBinding struct {
	buf    *buffer
	offset uint64
}

const (
	seenUpload uint8 = 1 << iota
	seenReadback
)

func (c *commandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
		slogger().Error("native: encoding failed", "error", err)
	}
}

func (c *commandBuffer) recording() bool {
	if c.state != cbRecording {
		c.fail(errNotRecording)
		return false
	}
	return true
}

func (c *commandBuffer) outsidePass() bool {
	if !c.recording() {
		return false
	}
	if c.pass != nil {
		c.fail(errRendering)
		return false
	}
	return true
}

// reads marks a host-visible buffer whose mirror must reach the GPU before
// the submission executes.
func (c *commandBuffer) reads(b *buffer) {
	if b.mirror == nil || c.seen[b]&seenUpload != 0 {
		return
	}
	c.seen[b] |= seenUpload
	c.uploads = append(c.uploads, b)
}

// writes marks a host-visible buffer whose mirror is refreshed once the
// submission retires.
func (c *commandBuffer) writes(b *buffer) {
	if b.mirror == nil || c.seen[b]&seenReadback != 0 {
		return
	}
	c.seen[b] |= seenReadback
	c.readbacks = append(c.readbacks, b)
}

func (c *commandBuffer) Begin() error {
	if c.state != cbInitial {
		return errors.New("native: command buffer already begun")
	}
	if err := c.enc.BeginEncoding("d3d11"); err != nil {
		return errors.Wrap(err, "native: begin encoding")
	}
	c.state = cbRecording
	c.seen = make(map[*buffer]uint8)
	return nil
}

func (c *commandBuffer) End() error {
	if c.state != cbRecording {
		return errNotRecording
	}
	if c.pass != nil {
		c.fail(errors.New("native: rendering scope left open"))
		c.pass.End()
		c.pass = nil
	}
	if c.err != nil {
		c.enc.DiscardEncoding()
		c.state = cbRetired
		return c.err
	}
	raw, err := c.enc.EndEncoding()
	if err != nil {
		c.state = cbRetired
		return errors.Wrap(err, "native: end encoding")
	}
	c.raw = raw
	c.state = cbExecutable
	c.seen = nil
	return nil
}

func (c *commandBuffer) CopyBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Buffer, srcOffset, size uint64) {
	if !c.outsidePass() {
		return
	}
	d, s := dst.(*buffer), src.(*buffer)
	c.reads(s)
	c.writes(d)
	c.enc.CopyBufferToBuffer(s.raw, d.raw, []hal.BufferCopy{{SrcOffset: srcOffset, DstOffset: dstOffset, Size: size}})
}

func (c *commandBuffer) CopyBufferToImage(dst gpucore.Image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D, src gpucore.Buffer, srcOffset uint64) {
	if !c.outsidePass() {
		return
	}
	img, s := dst.(*image), src.(*buffer)
	c.reads(s)
	c.enc.CopyBufferToTexture(s.raw, img.raw, []hal.BufferTextureCopy{bufferTextureCopy(img, sub, offset, extent, srcOffset)})
}

func (c *commandBuffer) CopyImageToBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D) {
	if !c.outsidePass() {
		return
	}
	d, img := dst.(*buffer), src.(*image)
	c.writes(d)
	c.enc.CopyTextureToBuffer(img.raw, d.raw, []hal.BufferTextureCopy{bufferTextureCopy(img, sub, offset, extent, dstOffset)})
}

func (c *commandBuffer) CopyImage(dst gpucore.Image, dstSub gpucore.SubresourceLayers, src gpucore.Image, srcSub gpucore.SubresourceLayers, extent gpucore.Extent3D) {
	if !c.outsidePass() {
		return
	}
	d, s := dst.(*image), src.(*image)
	c.enc.CopyTextureToTexture(s.raw, d.raw, []hal.TextureCopy{{
		SrcBase: imageCopyTexture(s, srcSub, gpucore.Offset3D{}),
		DstBase: imageCopyTexture(d, dstSub, gpucore.Offset3D{}),
		Size:    copyExtent(d, dstSub, extent),
	}})
}

func (c *commandBuffer) TransitionImage(img gpucore.Image, from, to gpucore.ImageLayout) {
	if !c.outsidePass() {
		return
	}
	c.enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.(*image).raw,
		Usage:   hal.TextureUsageTransition{OldUsage: layoutUsage(from), NewUsage: layoutUsage(to)},
	}})
}

// ClearColorImage clears through an empty render pass. The image arrives
// in the transfer destination layout and is returned to it.
func (c *commandBuffer) ClearColorImage(img gpucore.Image, sub gpucore.SubresourceLayers, color gpucore.ClearColor) {
	if !c.outsidePass() {
		return
	}
	i := img.(*image)
	if i.desc.Usage&gpucore.ImageUsageColorAttachment == 0 {
		c.fail(errors.Newf("native: clear of %q needs a color attachment usage", i.desc.Label))
		return
	}
	if sub.MipLevel != 0 || sub.BaseArrayLayer != 0 {
		slogger().Warn("native: clear limited to the default view", "image", i.desc.Label, "mip", sub.MipLevel, "layer", sub.BaseArrayLayer)
	}
	view, err := i.defaultView()
	if err != nil {
		c.fail(err)
		return
	}
	c.enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: i.raw,
		Usage:   hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageCopyDst, NewUsage: gputypes.TextureUsageRenderAttachment},
	}})
	pass := c.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "d3d11 clear",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: float64(color[0]), G: float64(color[1]), B: float64(color[2]), A: float64(color[3])},
		}},
	})
	pass.End()
	c.enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: i.raw,
		Usage:   hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageRenderAttachment, NewUsage: gputypes.TextureUsageCopyDst},
	}})
}

func (c *commandBuffer) BeginRendering(targets *gpucore.RenderTargets) {
	if !c.outsidePass() {
		return
	}
	desc := &hal.RenderPassDescriptor{Label: "d3d11"}
	for _, t := range targets.Color {
		if t == nil {
			continue
		}
		view, err := t.(*image).defaultView()
		if err != nil {
			c.fail(err)
			return
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		})
	}
	if targets.Depth != nil {
		view, err := targets.Depth.(*image).defaultView()
		if err != nil {
			c.fail(err)
			return
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:           view,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
	}
	c.pass = c.enc.BeginRenderPass(desc)
	c.dirty = true
}

func (c *commandBuffer) EndRendering() {
	if !c.recording() {
		return
	}
	if c.pass == nil {
		c.fail(errNotRendering)
		return
	}
	c.pass.End()
	c.pass = nil
}

func (c *commandBuffer) BindPipeline(p gpucore.Pipeline) {
	np := p.(*pipeline)
	if np.compute != nil {
		c.compute = np
		return
	}
	c.render = np
	c.dirty = true
}

func (c *commandBuffer) BindVertexBuffer(slot uint32, buf gpucore.Buffer, offset uint64, _ uint32) {
	c.vertex[slot] = vertexBinding{buf: buf.(*buffer), offset: offset}
	c.dirty = true
}

func (c *commandBuffer) BindIndexBuffer(buf gpucore.Buffer, offset uint64, format gpucore.IndexFormat) {
	c.index, c.indexOff, c.indexFmt = buf.(*buffer), offset, format
	c.dirty = true
}

// SetViewports keeps the first viewport. The HAL exposes a single one.
func (c *commandBuffer) SetViewports(viewports []gpucore.Viewport) {
	if len(viewports) > 1 {
		slogger().Warn("native: extra viewports ignored", "count", len(viewports))
	}
	if len(viewports) > 0 {
		vp := viewports[0]
		c.viewport = &vp
		c.dirty = true
	}
}

func (c *commandBuffer) SetScissors(rects []gpucore.Rect) {
	if len(rects) > 0 {
		r := rects[0]
		c.scissor = &r
		c.dirty = true
	}
}

func (c *commandBuffer) SetBlendConstants(v [4]float32) {
	c.blend = v
	c.dirty = true
}

func (c *commandBuffer) SetStencilReference(ref uint32) {
	c.stencil = ref
	c.dirty = true
}

func (c *commandBuffer) flushState() bool {
	if !c.recording() {
		return false
	}
	if c.pass == nil {
		c.fail(errNotRendering)
		return false
	}
	if c.render == nil {
		c.fail(errors.New("native: draw without a graphics pipeline"))
		return false
	}
	if !c.dirty {
		return true
	}
	p := c.pass
	p.SetPipeline(c.render.render)
	for slot, vb := range c.vertex {
		if vb.buf == nil {
			continue
		}
		c.reads(vb.buf)
		p.SetVertexBuffer(uint32(slot), vb.buf.raw, vb.offset)
	}
	if c.index != nil {
		c.reads(c.index)
		p.SetIndexBuffer(c.index.raw, indexFormat(c.indexFmt), c.indexOff)
	}
	if vp := c.viewport; vp != nil {
		p.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	}
	if r := c.scissor; r != nil {
		p.SetScissorRect(uint32(max(0, r.X)), uint32(max(0, r.Y)), r.Width, r.Height)
	}
	p.SetBlendConstant(&gputypes.Color{
		R: float64(c.blend[0]), G: float64(c.blend[1]), B: float64(c.blend[2]), A: float64(c.blend[3]),
	})
	p.SetStencilReference(c.stencil)
	c.dirty = false
	return true
}

func (c *commandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if c.flushState() {
		c.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

func (c *commandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if !c.flushState() {
		return
	}
	if c.index == nil {
		c.fail(errors.New("native: indexed draw without an index buffer"))
		return
	}
	c.pass.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (c *commandBuffer) Dispatch(x, y, z uint32) {
	if !c.outsidePass() {
		return
	}
	if c.compute == nil {
		c.fail(errors.New("native: dispatch without a compute pipeline"))
		return
	}
	pass := c.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "d3d11"})
	pass.SetPipeline(c.compute.compute)
	pass.Dispatch(x, y, z)
	pass.End()
}

func (c *commandBuffer) Destroy() {
	switch c.state {
	case cbInitial:
	case cbRecording:
		if c.pass != nil {
			c.pass.End()
			c.pass = nil
		}
		c.enc.DiscardEncoding()
	case cbExecutable:
		c.dev.dev.FreeCommandBuffer(c.raw)
	case cbPending:
		// Freed by the device when the submission retires.
		return
	}
	c.state = cbRetired
}

func imageCopyTexture(img *image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D) hal.ImageCopyTexture {
	origin := hal.Origin3D{X: uint32(offset.X), Y: uint32(offset.Y), Z: uint32(offset.Z)}
	if img.desc.Type != gpucore.ImageType3D {
		origin.Z = sub.BaseArrayLayer
	}
	return hal.ImageCopyTexture{Texture: img.raw, MipLevel: sub.MipLevel, Origin: origin}
}

// copyExtent folds the layer count into the depth of non-3D copies.
func copyExtent(img *image, sub gpucore.SubresourceLayers, extent gpucore.Extent3D) hal.Extent3D {
	e := hal.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: extent.Depth}
	if img.desc.Type != gpucore.ImageType3D {
		e.DepthOrArrayLayers = max(1, sub.LayerCount)
	}
	return e
}

func bufferTextureCopy(img *image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D, bufOffset uint64) hal.BufferTextureCopy {
	info := img.desc.Format.Info()
	blocks := gpucore.BlockCount(extent, info.BlockSize)
	return hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{
			Offset:       bufOffset,
			BytesPerRow:  blocks.Width * info.ElementSize,
			RowsPerImage: blocks.Height,
		},
		TextureBase: imageCopyTexture(img, sub, offset),
		Size:        copyExtent(img, sub, extent),
	}
}
