package d3d11

import (
	"github.com/google/uuid"

	"github.com/gogpu/d3d11/internal/gpu"
)

// Resource is a Buffer or a Texture.
type Resource interface {
	// ID uniquely identifies the resource.
	ID() uuid.UUID

	// Label is the debug name given at creation.
	Label() string

	tracked() tracked
	owner() *Device
	destroy()
}

// tracked is the GPU-side use of a resource.
type tracked interface {
	IsInUse() bool
	WaitIdle(t *gpu.Tracker)
}

// mapKey identifies one subresource for map bookkeeping.
type mapKey struct {
	res Resource
	sub uint32
}

// register adds r to the resources destroyed by Close.
func (d *Device) register(r Resource) {
	d.mu.Lock()
	d.resources[r] = struct{}{}
	d.mu.Unlock()
}

func (d *Device) unregister(r Resource) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.resources[r]; !ok {
		return false
	}
	delete(d.resources, r)
	return true
}

// release waits until the GPU no longer uses r and destroys it. It runs on
// the immediate context's goroutine.
func (d *Device) release(r Resource) {
	if d.closed.Load() || !d.unregister(r) {
		return
	}
	d.immediate.waitForResource(r.tracked(), 0)
	r.destroy()
}
