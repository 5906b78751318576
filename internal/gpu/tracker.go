package gpu

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/d3d11/gpucore"
)

// retirePollInterval bounds a single backend wait so Close is observed
// while the GPU is stalled.
const retirePollInterval = 100 * time.Millisecond

// Tracker follows submissions through the GPU queue.
//
// A retirement goroutine waits on the backend for each submitted sequence
// number in order, runs the submission's retire callback, then publishes the
// new retired sequence and wakes every waiter. Waiters block on a condition
// variable keyed on the retired sequence.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	dev gpucore.Device

	mu        sync.Mutex
	cond      *sync.Cond
	pending   []pendingSubmission
	submitted uint64
	closed    bool

	retired atomic.Uint64
	done    chan struct{}
}

type pendingSubmission struct {
	seq      uint64
	onRetire func()
}

// NewTracker creates a tracker and starts its retirement goroutine.
func NewTracker(dev gpucore.Device) *Tracker {
	t := &Tracker{
		dev:  dev,
		done: make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	go t.run()
	return t
}

// Track registers a submitted sequence number. onRetire runs on the
// retirement goroutine before waiters observe the retirement.
func (t *Tracker) Track(seq uint64, onRetire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, pendingSubmission{seq: seq, onRetire: onRetire})
	t.submitted = seq
	t.cond.Broadcast()
}

// Retired returns the last retired sequence number.
func (t *Tracker) Retired() uint64 {
	return t.retired.Load()
}

// Submitted returns the last tracked sequence number.
func (t *Tracker) Submitted() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitted
}

// IsRetired reports whether seq has retired.
func (t *Tracker) IsRetired(seq uint64) bool {
	return t.retired.Load() >= seq
}

// WaitFor blocks until seq has retired. Sequence numbers that were never
// submitted return immediately once the tracker is idle.
func (t *Tracker) WaitFor(seq uint64) {
	if t.IsRetired(seq) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.retired.Load() < seq && seq <= t.submitted && !t.closed {
		t.cond.Wait()
	}
}

// WaitIdle blocks until every tracked submission has retired.
func (t *Tracker) WaitIdle() {
	t.WaitFor(t.Submitted())
}

// Close waits for outstanding submissions and stops the retirement goroutine.
func (t *Tracker) Close() {
	t.WaitIdle()
	t.mu.Lock()
	t.closed = true
	t.cond.Broadcast()
	t.mu.Unlock()
	<-t.done
}

func (t *Tracker) run() {
	defer close(t.done)
	for {
		t.mu.Lock()
		for len(t.pending) == 0 && !t.closed {
			t.cond.Wait()
		}
		if len(t.pending) == 0 {
			t.mu.Unlock()
			return
		}
		p := t.pending[0]
		t.mu.Unlock()

		t.waitBackend(p.seq)
		if p.onRetire != nil {
			p.onRetire()
		}

		t.mu.Lock()
		t.pending = t.pending[1:]
		t.retired.Store(p.seq)
		t.cond.Broadcast()
		t.mu.Unlock()
	}
}

func (t *Tracker) waitBackend(seq uint64) {
	for {
		ok, err := t.dev.Wait(seq, retirePollInterval)
		if err != nil {
			// A lost device never retires; release waiters instead of hanging.
			slogger().Error("gpu: wait for submission failed", "seq", seq, "err", err)
			return
		}
		if ok {
			return
		}
	}
}
