package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

// BufferInfo describes a buffer.
type BufferInfo struct {
	Label string
	Size  uint64
	Usage gpucore.BufferUsage
}

// BufferSlice is one physical backing store of a Buffer.
type BufferSlice struct {
	Resource
	handle gpucore.Buffer
}

// Handle returns the backend buffer.
func (s *BufferSlice) Handle() gpucore.Buffer { return s.handle }

// Data returns the CPU view of a host-visible slice, nil otherwise.
func (s *BufferSlice) Data() []byte { return s.handle.Data() }

// Buffer is a logical buffer whose physical backing can be renamed.
//
// The current slice is what GPU commands recorded from now on use. It is
// swapped by the execution thread in Context.InvalidateBuffer. Slices are
// allocated by any goroutine through AllocSlice.
type Buffer struct {
	dev    *Device
	info   BufferInfo
	memory gpucore.MemoryFlags

	current atomic.Pointer[BufferSlice]

	mu     sync.Mutex
	free   []*BufferSlice
	slices []*BufferSlice
}

// CreateBuffer creates a buffer with one physical slice.
func (d *Device) CreateBuffer(info BufferInfo, memory gpucore.MemoryFlags) (*Buffer, error) {
	if info.Size == 0 {
		return nil, errors.New("gpu: buffer size must be positive")
	}
	b := &Buffer{dev: d, info: info, memory: memory}
	s, err := b.newSlice()
	if err != nil {
		return nil, err
	}
	b.current.Store(s)
	return b, nil
}

// Info returns the buffer description.
func (b *Buffer) Info() BufferInfo { return b.info }

// Memory returns the memory properties of every slice.
func (b *Buffer) Memory() gpucore.MemoryFlags { return b.memory }

// Slice returns the current physical slice.
func (b *Buffer) Slice() *BufferSlice { return b.current.Load() }

// AllocSlice returns a physical slice that no command list references. It
// reuses a retired slice when one is idle and allocates otherwise. The slice
// is not current until passed to Context.InvalidateBuffer.
func (b *Buffer) AllocSlice() (*BufferSlice, error) {
	b.mu.Lock()
	for i, s := range b.free {
		if !s.IsInUse() {
			b.free = append(b.free[:i], b.free[i+1:]...)
			b.mu.Unlock()
			return s, nil
		}
	}
	b.mu.Unlock()
	return b.newSlice()
}

func (b *Buffer) newSlice() (*BufferSlice, error) {
	handle, err := b.dev.backend.CreateBuffer(&gpucore.BufferDesc{
		Label:  b.info.Label,
		Size:   b.info.Size,
		Usage:  b.info.Usage,
		Memory: b.memory,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "gpu: allocate %d byte buffer slice", b.info.Size)
	}
	s := &BufferSlice{handle: handle}
	b.dev.memory.add(b.memory, b.info.Size)

	b.mu.Lock()
	b.slices = append(b.slices, s)
	b.mu.Unlock()
	return s, nil
}

// rename makes s the current slice and queues the previous one for reuse.
func (b *Buffer) rename(s *BufferSlice) {
	old := b.current.Swap(s)
	if old == nil || old == s {
		return
	}
	b.mu.Lock()
	b.free = append(b.free, old)
	b.mu.Unlock()
}

// SliceCount returns the number of physical slices allocated so far.
func (b *Buffer) SliceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slices)
}

// Destroy releases every physical slice. The caller guarantees the buffer
// is idle.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	slices := b.slices
	b.slices, b.free = nil, nil
	b.mu.Unlock()
	for _, s := range slices {
		s.handle.Destroy()
		b.dev.memory.sub(b.memory, b.info.Size)
	}
}

// IsInUse reports whether any physical slice is referenced by a recorded or
// in-flight command list.
func (b *Buffer) IsInUse() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.slices {
		if s.IsInUse() {
			return true
		}
	}
	return false
}

// WaitIdle blocks until no submitted command list references any slice.
func (b *Buffer) WaitIdle(t *Tracker) {
	b.mu.Lock()
	slices := append([]*BufferSlice(nil), b.slices...)
	b.mu.Unlock()
	for _, s := range slices {
		s.WaitIdle(t)
	}
}
