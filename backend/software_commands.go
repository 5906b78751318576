package backend

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/d3d11/gpucore"
)

// EventKind identifies a traced GPU operation.
type EventKind uint8

// Traced operations.
const (
	EventDraw EventKind = iota
	EventDrawIndexed
	EventDispatch
	EventClear
	EventCopy
)

var eventKindNames = [...]string{
	EventDraw:        "Draw",
	EventDrawIndexed: "DrawIndexed",
	EventDispatch:    "Dispatch",
	EventClear:       "Clear",
	EventCopy:        "Copy",
}

// String returns the name of the event kind.
func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "Unknown"
}

// Event is one traced GPU operation together with the state it observed.
type Event struct {
	Seq  uint64
	Kind EventKind

	Pipeline     gpucore.Pipeline
	Target       gpucore.Image
	VertexBuffer gpucore.Buffer
	IndexBuffer  gpucore.Buffer
	Viewport     gpucore.Viewport
	Blend        [4]float32
	StencilRef   uint32

	// Args holds the counts of draws and dispatches.
	Args [5]uint32
}

type cbState uint8

const (
	cbInitial cbState = iota
	cbRecording
	cbExecutable
	cbPending
	cbRetired
)

type execState struct {
	dev *SoftwareDevice
	seq uint64

	rendering bool
	targets   gpucore.RenderTargets
	pipeline  gpucore.Pipeline
	vertex    [gpucore.MaxVertexBuffers]gpucore.Buffer
	index     gpucore.Buffer
	viewport  gpucore.Viewport
	blend     [4]float32
	stencil   uint32
}

func (s *execState) event(kind EventKind, args ...uint32) Event {
	ev := Event{
		Seq:          s.seq,
		Kind:         kind,
		Pipeline:     s.pipeline,
		Target:       s.targets.Color[0],
		VertexBuffer: s.vertex[0],
		IndexBuffer:  s.index,
		Viewport:     s.viewport,
		Blend:        s.blend,
		StencilRef:   s.stencil,
	}
	copy(ev.Args[:], args)
	return ev
}

// softCommandBuffer records operations as closures replayed by the GPU
// goroutine.
type softCommandBuffer struct {
	state cbState
	ops   []func(*execState)
}

func (c *softCommandBuffer) push(op func(*execState)) {
	if c.state != cbRecording {
		panic("software: command recorded outside Begin/End")
	}
	c.ops = append(c.ops, op)
}

func (c *softCommandBuffer) Begin() error {
	c.state = cbRecording
	c.ops = c.ops[:0]
	return nil
}

func (c *softCommandBuffer) End() error {
	c.state = cbExecutable
	return nil
}

func (c *softCommandBuffer) Destroy() {
	c.ops = nil
}

func (c *softCommandBuffer) CopyBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Buffer, srcOffset, size uint64) {
	d, s := dst.(*softBuffer), src.(*softBuffer)
	c.push(func(st *execState) {
		copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
		st.dev.record(st.event(EventCopy))
	})
}

func (c *softCommandBuffer) CopyBufferToImage(dst gpucore.Image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D, src gpucore.Buffer, srcOffset uint64) {
	img, buf := dst.(*softImage), src.(*softBuffer)
	c.push(func(st *execState) {
		img.rows(sub, offset, extent, func(imgOff, bufOff, n uint64) {
			copy(img.data[imgOff:imgOff+n], buf.data[srcOffset+bufOff:srcOffset+bufOff+n])
		})
		st.dev.record(st.event(EventCopy))
	})
}

func (c *softCommandBuffer) CopyImageToBuffer(dst gpucore.Buffer, dstOffset uint64, src gpucore.Image, sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D) {
	img, buf := src.(*softImage), dst.(*softBuffer)
	c.push(func(st *execState) {
		img.rows(sub, offset, extent, func(imgOff, bufOff, n uint64) {
			copy(buf.data[dstOffset+bufOff:dstOffset+bufOff+n], img.data[imgOff:imgOff+n])
		})
		st.dev.record(st.event(EventCopy))
	})
}

func (c *softCommandBuffer) CopyImage(dst gpucore.Image, dstSub gpucore.SubresourceLayers, src gpucore.Image, srcSub gpucore.SubresourceLayers, extent gpucore.Extent3D) {
	d, s := dst.(*softImage), src.(*softImage)
	c.push(func(st *execState) {
		tmp := make([]byte, 0, 256)
		s.rows(srcSub, gpucore.Offset3D{}, extent, func(imgOff, _, n uint64) {
			tmp = append(tmp, s.data[imgOff:imgOff+n]...)
		})
		d.rows(dstSub, gpucore.Offset3D{}, extent, func(imgOff, bufOff, n uint64) {
			copy(d.data[imgOff:imgOff+n], tmp[bufOff:bufOff+n])
		})
		st.dev.record(st.event(EventCopy))
	})
}

func (c *softCommandBuffer) TransitionImage(gpucore.Image, gpucore.ImageLayout, gpucore.ImageLayout) {
	c.push(func(*execState) {})
}

func (c *softCommandBuffer) ClearColorImage(img gpucore.Image, sub gpucore.SubresourceLayers, color gpucore.ClearColor) {
	si := img.(*softImage)
	c.push(func(st *execState) {
		texel := encodeColor(si.desc.Format, color)
		extent := gpucore.MipLevelExtent(si.desc.Extent, sub.MipLevel)
		si.rows(sub, gpucore.Offset3D{}, extent, func(imgOff, _, n uint64) {
			row := si.data[imgOff : imgOff+n]
			for i := 0; i+len(texel) <= len(row); i += len(texel) {
				copy(row[i:], texel)
			}
		})
		ev := st.event(EventClear)
		ev.Target = img
		st.dev.record(ev)
	})
}

func (c *softCommandBuffer) BeginRendering(targets *gpucore.RenderTargets) {
	t := *targets
	c.push(func(st *execState) {
		st.rendering = true
		st.targets = t
	})
}

func (c *softCommandBuffer) EndRendering() {
	c.push(func(st *execState) {
		st.rendering = false
	})
}

func (c *softCommandBuffer) BindPipeline(p gpucore.Pipeline) {
	c.push(func(st *execState) { st.pipeline = p })
}

func (c *softCommandBuffer) BindVertexBuffer(slot uint32, buf gpucore.Buffer, _ uint64, _ uint32) {
	c.push(func(st *execState) { st.vertex[slot] = buf })
}

func (c *softCommandBuffer) BindIndexBuffer(buf gpucore.Buffer, _ uint64, _ gpucore.IndexFormat) {
	c.push(func(st *execState) { st.index = buf })
}

func (c *softCommandBuffer) SetViewports(viewports []gpucore.Viewport) {
	var vp gpucore.Viewport
	if len(viewports) > 0 {
		vp = viewports[0]
	}
	c.push(func(st *execState) { st.viewport = vp })
}

func (c *softCommandBuffer) SetScissors([]gpucore.Rect) {
	c.push(func(*execState) {})
}

func (c *softCommandBuffer) SetBlendConstants(bc [4]float32) {
	c.push(func(st *execState) { st.blend = bc })
}

func (c *softCommandBuffer) SetStencilReference(ref uint32) {
	c.push(func(st *execState) { st.stencil = ref })
}

func (c *softCommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	c.push(func(st *execState) {
		if !st.rendering {
			panic("software: draw outside rendering scope")
		}
		st.dev.record(st.event(EventDraw, vertexCount, instanceCount, firstVertex, firstInstance))
	})
}

func (c *softCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	c.push(func(st *execState) {
		if !st.rendering {
			panic("software: draw outside rendering scope")
		}
		st.dev.record(st.event(EventDrawIndexed, indexCount, instanceCount, firstIndex, uint32(vertexOffset), firstInstance))
	})
}

func (c *softCommandBuffer) Dispatch(x, y, z uint32) {
	c.push(func(st *execState) {
		if st.rendering {
			panic("software: dispatch inside rendering scope")
		}
		st.dev.record(st.event(EventDispatch, x, y, z))
	})
}

// rows walks the block rows of an image region. fn receives the image
// offset, the offset in a tightly packed copy of the region, and the row
// length in bytes.
func (i *softImage) rows(sub gpucore.SubresourceLayers, offset gpucore.Offset3D, extent gpucore.Extent3D, fn func(imgOff, bufOff, n uint64)) {
	info := i.desc.Format.Info()
	blocks := gpucore.BlockCount(extent, info.BlockSize)
	rowBytes := uint64(blocks.Width) * uint64(info.ElementSize)
	ox := uint64(offset.X) / uint64(info.BlockSize.Width)
	oy := uint64(offset.Y) / uint64(info.BlockSize.Height)
	oz := uint64(offset.Z)

	var bufOff uint64
	for layer := range max(sub.LayerCount, 1) {
		layout := i.SubresourceLayout(gpucore.Subresource{
			Aspect:     sub.Aspect,
			MipLevel:   sub.MipLevel,
			ArrayLayer: sub.BaseArrayLayer + layer,
		})
		for z := range uint64(blocks.Depth) {
			for y := range uint64(blocks.Height) {
				imgOff := layout.Offset + (z+oz)*layout.DepthPitch + (y+oy)*layout.RowPitch + ox*uint64(info.ElementSize)
				fn(imgOff, bufOff, rowBytes)
				bufOff += rowBytes
			}
		}
	}
}

func encodeColor(format gpucore.Format, c gpucore.ClearColor) []byte {
	unorm := func(v float32) byte {
		return byte(math.Round(float64(min(max(v, 0), 1)) * 255))
	}
	switch format {
	case gpucore.FormatRGBA8Unorm, gpucore.FormatRGBA8UnormSRGB:
		return []byte{unorm(c[0]), unorm(c[1]), unorm(c[2]), unorm(c[3])}
	case gpucore.FormatBGRA8Unorm, gpucore.FormatBGRA8UnormSRGB:
		return []byte{unorm(c[2]), unorm(c[1]), unorm(c[0]), unorm(c[3])}
	case gpucore.FormatR8Unorm:
		return []byte{unorm(c[0])}
	case gpucore.FormatR32Float:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(c[0]))
	case gpucore.FormatRGBA32Float:
		out := make([]byte, 0, 16)
		for _, v := range c {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
		return out
	default:
		return make([]byte, max(format.Info().ElementSize, 1))
	}
}
