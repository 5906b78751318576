package d3d11

import (
	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"

	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/cs"
	"github.com/gogpu/d3d11/internal/gpu"
)

// ImmediateContext records commands that the device's execution thread
// replays as soon as a chunk is handed off.
//
// Work is submitted to the GPU on Flush, when a map has to wait, and when
// the number of pending draws reaches the device's limit before
// ExecuteCommandList or SetRenderTargets.
//
// ImmediateContext is not safe for concurrent use.
type ImmediateContext struct {
	deviceContext

	// busy is set once a chunk has been handed to the execution thread
	// since the last submission.
	busy bool

	mapped map[mapKey]struct{}
}

func newImmediateContext(d *Device) *ImmediateContext {
	c := &ImmediateContext{
		deviceContext: deviceContext{dev: d, state: gpu.DefaultState()},
		mapped:        make(map[mapKey]struct{}),
	}
	c.stream = cs.NewStream(d.pool, c.emitChunk)
	return c
}

func (c *ImmediateContext) emitChunk(ch *cs.Chunk) {
	c.dev.thread.DispatchChunk(ch)
	c.busy = true
}

// Device returns the owning device.
func (c *ImmediateContext) Device() *Device { return c.dev }

// PendingDraws returns the number of draws recorded since the last
// submission.
func (c *ImmediateContext) PendingDraws() int { return c.draws }

// Flush submits everything recorded so far. It does not wait for the GPU.
func (c *ImmediateContext) Flush() {
	c.dev.flushInit()
	if !c.busy && c.stream.Empty() {
		return
	}
	start := hrtime.Now()
	c.stream.Emit(cs.SubmitCommand{})
	c.stream.Flush()
	c.draws = 0
	c.busy = false
	c.dev.stats.flushed(hrtime.Since(start))
	slogger().Debug("d3d11: flush", "handedOff", c.stream.HandedOff())
}

// Synchronize blocks until the execution thread has replayed everything
// recorded so far. It does not wait for the GPU.
func (c *ImmediateContext) Synchronize() {
	c.synchronize()
}

func (c *ImmediateContext) synchronize() {
	c.stream.Flush()
	c.dev.thread.Synchronize()
}

// SetRenderTargets binds render targets, submitting pending work first when
// the pending draw limit is reached.
func (c *ImmediateContext) SetRenderTargets(colors []*Texture, depth *Texture) {
	if c.draws >= c.dev.opts.maxPendingDraws {
		c.Flush()
	}
	c.deviceContext.SetRenderTargets(colors, depth)
}

// ExecuteCommandList replays list. The list starts from the default state.
// Afterwards the context state is restored when restoreState is set and
// cleared otherwise. A list can be executed once.
func (c *ImmediateContext) ExecuteCommandList(list *CommandList, restoreState bool) error {
	chunks, draws, err := list.take(c.dev)
	if err != nil {
		return err
	}
	c.stream.Emit(cs.ResetStateCommand{})
	c.stream.Flush()
	if c.draws >= c.dev.opts.maxPendingDraws {
		c.Flush()
	}

	c.dev.thread.DispatchChunks(chunks)

	if restoreState {
		c.restoreState()
	} else {
		c.ClearState()
	}
	c.busy = true
	c.draws += draws
	return nil
}

// FinishCommandList is invalid on the immediate context.
func (c *ImmediateContext) FinishCommandList(bool) (*CommandList, error) {
	return nil, invalidCallf("d3d11: FinishCommandList on the immediate context")
}

// waitForResource submits pending work and waits until the GPU no longer
// uses r. With MapFlagDoNotWait, honored only on devices opened
// WithMapNoWait, it reports false instead of blocking.
func (c *ImmediateContext) waitForResource(r tracked, flags MapFlags) bool {
	if !c.dev.opts.mapNoWait {
		flags &^= MapFlagDoNotWait
	}
	c.Flush()
	c.synchronize()

	if !r.IsInUse() {
		return true
	}
	if flags&MapFlagDoNotWait != 0 {
		c.dev.stats.stillDrawing.Add(1)
		return false
	}
	start := hrtime.Now()
	r.WaitIdle(c.dev.gpu.Tracker())
	c.dev.stats.waited(hrtime.Since(start))
	return true
}

// Map gives the CPU access to one subresource.
//
// Discard maps rename the resource and never wait. No-overwrite maps return
// the memory of the previous discard. Other maps wait for the GPU to finish
// with the resource, or fail with ErrWasStillDrawing under
// MapFlagDoNotWait.
func (c *ImmediateContext) Map(r Resource, sub uint32, mapType MapType, flags MapFlags) (MappedSubresource, error) {
	if err := c.dev.checkOpen(); err != nil {
		return MappedSubresource{}, err
	}
	if r == nil || r.owner() != c.dev {
		return MappedSubresource{}, invalidArgf("d3d11: Map of a resource from another device")
	}
	label, usage, cpu := mapInfo(r)
	if err := checkMap(label, usage, cpu, mapType, flags); err != nil {
		return MappedSubresource{}, err
	}
	var (
		m   MappedSubresource
		err error
	)
	switch t := r.(type) {
	case *Buffer:
		if sub != 0 {
			return m, invalidArgf("d3d11: buffer %q has no subresource %d", t.Label(), sub)
		}
		m, err = c.mapBuffer(t, mapType, flags)
	case *Texture:
		m, err = c.mapImage(t, sub, mapType, flags)
	}
	if err != nil {
		return MappedSubresource{}, err
	}
	c.mapped[mapKey{r, sub}] = struct{}{}
	return m, nil
}

func (c *ImmediateContext) mapBuffer(b *Buffer, mapType MapType, flags MapFlags) (MappedSubresource, error) {
	if !b.buf.Memory().HostVisible() {
		return MappedSubresource{}, invalidArgf("d3d11: buffer %q is device-local", b.Label())
	}
	switch mapType {
	case MapWriteDiscard:
		s, err := b.buf.AllocSlice()
		if err != nil {
			return MappedSubresource{}, unsupported(err, "buffer %q rename", b.Label())
		}
		b.mapped = s
		c.emit(cs.InvalidateBufferCommand{Buffer: b.buf, Slice: s})
	case MapWriteNoOverwrite:
	default:
		if !c.waitForResource(b.buf, flags) {
			return MappedSubresource{}, errors.Wrapf(ErrWasStillDrawing, "d3d11: map buffer %q", b.Label())
		}
		b.mapped = b.buf.Slice()
	}
	size := b.desc.Size
	return MappedSubresource{Data: b.mapped.Data()[:size], RowPitch: size, DepthPitch: size}, nil
}

func (c *ImmediateContext) mapImage(t *Texture, index uint32, mapType MapType, flags MapFlags) (MappedSubresource, error) {
	if t.mode == MapModeNone {
		return MappedSubresource{}, invalidArgf("d3d11: texture %q is not mappable", t.Label())
	}
	sub, err := t.Subresource(index)
	if err != nil {
		return MappedSubresource{}, err
	}

	if t.mode == MapModeDirect {
		if !c.waitForResource(&t.img.Resource, flags) {
			return MappedSubresource{}, errors.Wrapf(ErrWasStillDrawing, "d3d11: map texture %q", t.Label())
		}
		layout := t.img.SubresourceLayout(sub)
		m := MappedSubresource{
			Data:       t.img.Data()[layout.Offset : layout.Offset+layout.Size],
			RowPitch:   layout.Size,
			DepthPitch: layout.Size,
		}
		if t.desc.Dimension >= gpucore.ImageType2D {
			m.RowPitch = layout.RowPitch
		}
		if t.desc.Dimension == gpucore.ImageType3D {
			m.DepthPitch = layout.DepthPitch
		}
		return m, nil
	}

	row, slice, depth := t.levelPitch(sub.MipLevel)
	if mapType == MapWriteDiscard {
		s, err := t.shadow.AllocSlice()
		if err != nil {
			return MappedSubresource{}, unsupported(err, "texture %q shadow rename", t.Label())
		}
		t.mapped = s
		c.emit(cs.InvalidateBufferCommand{Buffer: t.shadow, Slice: s})
	} else {
		if t.desc.Usage == UsageStaging {
			c.emit(cs.CopyImageToBufferCommand{
				Dst:    t.shadow,
				Src:    t.img,
				Sub:    layers(sub),
				Extent: t.img.MipLevelExtent(sub.MipLevel),
			})
		}
		if !c.waitForResource(t.shadow, flags) {
			return MappedSubresource{}, errors.Wrapf(ErrWasStillDrawing, "d3d11: map texture %q", t.Label())
		}
		t.mapped = t.shadow.Slice()
	}
	t.mappedSub = sub
	return MappedSubresource{
		Data:       t.mapped.Data()[:slice*uint64(depth)],
		RowPitch:   row,
		DepthPitch: slice,
	}, nil
}

// Unmap ends CPU access to a subresource. Shadow-buffered textures are
// copied back to the image. Unmapping a subresource that is not mapped is
// logged and ignored.
func (c *ImmediateContext) Unmap(r Resource, sub uint32) {
	key := mapKey{r, sub}
	if _, ok := c.mapped[key]; !ok {
		slogger().Error("d3d11: Unmap of a subresource that is not mapped", "sub", sub)
		return
	}
	delete(c.mapped, key)

	t, ok := r.(*Texture)
	if !ok || t.mode != MapModeBuffer {
		return
	}
	c.emit(cs.CopyBufferToImageCommand{
		Dst:    t.img,
		Sub:    layers(t.mappedSub),
		Extent: t.img.MipLevelExtent(t.mappedSub.MipLevel),
		Src:    t.shadow,
	})
}
