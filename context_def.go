package d3d11

import (
	"github.com/gogpu/d3d11/internal/cs"
	"github.com/gogpu/d3d11/internal/gpu"
)

// mapEntry is a deferred map served from private scratch memory.
type mapEntry struct {
	mapType    MapType
	rowPitch   uint64
	depthPitch uint64
	data       []byte
}

// DeferredContext records a command list without touching the GPU.
//
// Maps are served from scratch memory owned by the context, keyed by
// resource and subresource; Unmap records an upload that runs when the list
// is executed. Only discard and no-overwrite maps are possible.
//
// Several deferred contexts may record concurrently with each other and with
// the immediate context. One DeferredContext is not safe for concurrent use.
type DeferredContext struct {
	deviceContext

	list   *CommandList
	mapped map[mapKey]*mapEntry
}

// CreateDeferredContext creates a deferred context in the default state.
func (d *Device) CreateDeferredContext() (*DeferredContext, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	c := &DeferredContext{
		deviceContext: deviceContext{dev: d, state: gpu.DefaultState()},
		list:          newCommandList(d),
		mapped:        make(map[mapKey]*mapEntry),
	}
	c.stream = cs.NewStream(d.pool, c.emitChunk)
	return c, nil
}

func (c *DeferredContext) emitChunk(ch *cs.Chunk) {
	c.list.add(ch)
}

// Device returns the owning device.
func (c *DeferredContext) Device() *Device { return c.dev }

// Flush is invalid on a deferred context. It logs an error and does nothing.
func (c *DeferredContext) Flush() {
	slogger().Error("d3d11: Flush called on a deferred context")
}

// FinishCommandList ends the recording and starts a new one. The context
// state is kept when restoreState is set and cleared otherwise, and every
// map is forgotten.
func (c *DeferredContext) FinishCommandList(restoreState bool) (*CommandList, error) {
	c.stream.Flush()
	list := c.list
	c.list = newCommandList(c.dev)

	if restoreState {
		c.restoreState()
	} else {
		// The next list starts from the default state on execution.
		c.state = gpu.DefaultState()
	}
	c.draws = 0
	clear(c.mapped)
	slogger().Debug("d3d11: command list finished",
		"id", list.id, "chunks", len(list.chunks), "draws", list.draws)
	return list, nil
}

// ExecuteCommandList appends the commands of list to the recording. A list
// can be executed once.
func (c *DeferredContext) ExecuteCommandList(list *CommandList, restoreState bool) error {
	chunks, _, err := list.take(c.dev)
	if err != nil {
		return err
	}
	c.stream.Emit(cs.ResetStateCommand{})
	c.stream.Flush()
	for _, ch := range chunks {
		c.list.add(ch)
	}
	if restoreState {
		c.restoreState()
	} else {
		c.ClearState()
	}
	return nil
}

// Map gives the CPU scratch memory for one subresource.
//
// MapWriteDiscard allocates fresh memory and replaces any earlier entry for
// the subresource. MapWriteNoOverwrite returns the memory of the earlier
// discard and fails with ErrInvalidArg when there is none. Other map types
// fail with ErrInvalidArg.
func (c *DeferredContext) Map(r Resource, sub uint32, mapType MapType, flags MapFlags) (MappedSubresource, error) {
	if r == nil || r.owner() != c.dev {
		return MappedSubresource{}, invalidArgf("d3d11: Map of a resource from another device")
	}
	key := mapKey{r, sub}

	switch mapType {
	case MapWriteDiscard:
		label, usage, cpu := mapInfo(r)
		if err := checkMap(label, usage, cpu, mapType, flags); err != nil {
			return MappedSubresource{}, err
		}
		e, err := c.scratch(r, sub)
		if err != nil {
			return MappedSubresource{}, err
		}
		c.mapped[key] = e
		return e.mapped(), nil

	case MapWriteNoOverwrite:
		e, ok := c.mapped[key]
		if !ok {
			return MappedSubresource{}, invalidArgf("d3d11: no-overwrite map of %q without a prior discard", r.Label())
		}
		e.mapType = MapWriteNoOverwrite
		return e.mapped(), nil

	default:
		return MappedSubresource{}, invalidArgf("d3d11: %s map on a deferred context", mapType)
	}
}

// scratch allocates the memory of a discard map.
func (c *DeferredContext) scratch(r Resource, sub uint32) (*mapEntry, error) {
	switch t := r.(type) {
	case *Buffer:
		if sub != 0 {
			return nil, invalidArgf("d3d11: buffer %q has no subresource %d", t.Label(), sub)
		}
		if !t.buf.Memory().HostVisible() {
			return nil, invalidArgf("d3d11: buffer %q is device-local", t.Label())
		}
		size := t.desc.Size
		return &mapEntry{
			mapType:    MapWriteDiscard,
			rowPitch:   size,
			depthPitch: size,
			data:       make([]byte, size),
		}, nil
	case *Texture:
		if t.mode == MapModeNone {
			return nil, invalidArgf("d3d11: texture %q is not mappable", t.Label())
		}
		s, err := t.Subresource(sub)
		if err != nil {
			return nil, err
		}
		row, slice, depth := t.levelPitch(s.MipLevel)
		return &mapEntry{
			mapType:    MapWriteDiscard,
			rowPitch:   row,
			depthPitch: slice,
			data:       make([]byte, slice*uint64(depth)),
		}, nil
	}
	return nil, invalidArgf("d3d11: unknown resource %T", r)
}

func (e *mapEntry) mapped() MappedSubresource {
	return MappedSubresource{Data: e.data, RowPitch: e.rowPitch, DepthPitch: e.depthPitch}
}

// Unmap records the upload of the mapped memory. The memory is captured
// now, so later writes through a no-overwrite map of the same entry reach
// the resource with the next Unmap only.
func (c *DeferredContext) Unmap(r Resource, sub uint32) {
	e, ok := c.mapped[mapKey{r, sub}]
	if !ok {
		slogger().Error("d3d11: Unmap of a subresource that is not mapped", "sub", sub)
		return
	}
	data := append([]byte(nil), e.data...)
	switch t := r.(type) {
	case *Buffer:
		c.emit(cs.UploadBufferCommand{Buffer: t.buf, Data: data})
	case *Texture:
		s, _ := t.Subresource(sub)
		c.emit(cs.UploadImageCommand{Image: t.img, Sub: layers(s), Data: data})
	}
}

// Release drops the current recording.
func (c *DeferredContext) Release() {
	c.stream.Release()
	c.list.Release()
	clear(c.mapped)
}
