package gpu

import "sync/atomic"

// Resource tracks references to a GPU object from recorded command lists.
//
// A command list takes one reference per object it touches and drops it when
// its submission retires. The object is in use while any reference is held.
type Resource struct {
	refs    atomic.Int32
	lastUse atomic.Uint64
}

func (r *Resource) acquire() { r.refs.Add(1) }
func (r *Resource) release() { r.refs.Add(-1) }

// markUsed records seq as the latest submission referencing r.
func (r *Resource) markUsed(seq uint64) {
	for {
		cur := r.lastUse.Load()
		if seq <= cur || r.lastUse.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// IsInUse reports whether a recorded or in-flight command list references r.
func (r *Resource) IsInUse() bool {
	return r.refs.Load() > 0
}

// LastUse returns the sequence number of the latest submission referencing r.
func (r *Resource) LastUse() uint64 {
	return r.lastUse.Load()
}

// WaitIdle blocks until no submitted command list references r. It does not
// wait for command lists that have not been submitted yet.
func (r *Resource) WaitIdle(t *Tracker) {
	for r.IsInUse() {
		seq := r.LastUse()
		if t.IsRetired(seq) {
			return
		}
		t.WaitFor(seq)
	}
}
