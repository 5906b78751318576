package gpu

import (
	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

// CommandList is one native command buffer plus everything it references.
//
// References are taken while recording so a resource touched by a list that
// has not been submitted yet still counts as in use. They are dropped when
// the submission retires.
type CommandList struct {
	dev *Device
	cmd gpucore.CommandBuffer

	resources map[*Resource]struct{}
	staging   []gpucore.Buffer
	ended     bool
}

// Cmd returns the native command buffer.
func (l *CommandList) Cmd() gpucore.CommandBuffer { return l.cmd }

// Track keeps r alive until the list retires.
func (l *CommandList) Track(r *Resource) {
	if _, ok := l.resources[r]; ok {
		return
	}
	r.acquire()
	l.resources[r] = struct{}{}
}

// TrackStaging destroys buf when the list retires.
func (l *CommandList) TrackStaging(buf gpucore.Buffer) {
	l.staging = append(l.staging, buf)
}

// End finishes recording.
func (l *CommandList) End() error {
	if l.ended {
		return nil
	}
	if err := l.cmd.End(); err != nil {
		return errors.Wrap(err, "gpu: end command buffer")
	}
	l.ended = true
	return nil
}

func (l *CommandList) markSubmitted(seq uint64) {
	for r := range l.resources {
		r.markUsed(seq)
	}
}

func (l *CommandList) retire() {
	for r := range l.resources {
		r.release()
	}
	l.resources = nil
	for _, b := range l.staging {
		l.dev.memory.sub(b.Memory(), b.Size())
		b.Destroy()
	}
	l.staging = nil
	l.cmd.Destroy()
}

// Discard drops a list that will never be submitted.
func (l *CommandList) Discard() {
	l.retire()
}

// CreateStaging allocates a host-visible transfer buffer.
func (d *Device) CreateStaging(size uint64) (gpucore.Buffer, error) {
	memory := gpucore.MemoryHostVisible | gpucore.MemoryHostCoherent
	buf, err := d.backend.CreateBuffer(&gpucore.BufferDesc{
		Label:  "staging",
		Size:   size,
		Usage:  gpucore.BufferUsageTransferSrc | gpucore.BufferUsageTransferDst,
		Memory: memory,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "gpu: allocate %d byte staging buffer", size)
	}
	d.memory.add(memory, size)
	return buf, nil
}
