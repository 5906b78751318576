package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/d3d11/gpucore"
)

// MemoryStats contains device memory usage statistics.
type MemoryStats struct {
	// DeviceLocalBytes is memory only the GPU can address.
	DeviceLocalBytes uint64

	// HostVisibleBytes is memory the CPU can map.
	HostVisibleBytes uint64

	// Allocations is the number of live buffer slices and images.
	Allocations int64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%d KB device-local, %d KB host-visible, %d allocations]",
		s.DeviceLocalBytes/1024,
		s.HostVisibleBytes/1024,
		s.Allocations)
}

// memoryCounter accumulates allocation sizes per memory kind.
type memoryCounter struct {
	deviceLocal atomic.Int64
	hostVisible atomic.Int64
	allocs      atomic.Int64
}

func (m *memoryCounter) add(flags gpucore.MemoryFlags, size uint64) {
	m.counter(flags).Add(int64(size))
	m.allocs.Add(1)
}

func (m *memoryCounter) sub(flags gpucore.MemoryFlags, size uint64) {
	m.counter(flags).Add(-int64(size))
	m.allocs.Add(-1)
}

func (m *memoryCounter) counter(flags gpucore.MemoryFlags) *atomic.Int64 {
	if flags.HostVisible() {
		return &m.hostVisible
	}
	return &m.deviceLocal
}

func (m *memoryCounter) stats() MemoryStats {
	return MemoryStats{
		DeviceLocalBytes: uint64(max(m.deviceLocal.Load(), 0)),
		HostVisibleBytes: uint64(max(m.hostVisible.Load(), 0)),
		Allocations:      m.allocs.Load(),
	}
}
