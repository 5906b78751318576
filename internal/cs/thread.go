package cs

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/d3d11/internal/gpu"
)

// queueItem is a chunk to replay or, when chunk is nil, a synchronization
// sentinel.
type queueItem struct {
	chunk    *Chunk
	sentinel uint64
}

// Thread is the single consumer of chunks for one device.
//
// Chunks from every context execute in strict FIFO order against one
// gpu.Context. The goroutine parks on an empty queue. Synchronize enqueues
// a sentinel and blocks until the thread has reached it.
//
// Thread is safe for concurrent use.
type Thread struct {
	ctx  *gpu.Context
	pool *Pool

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []queueItem
	closed   bool
	sentinel uint64 // last enqueued
	reached  uint64 // last executed

	chunks   atomic.Uint64
	commands atomic.Uint64
	done     chan struct{}
}

// NewThread starts an execution thread replaying into ctx. Replayed chunks
// are returned to pool.
func NewThread(ctx *gpu.Context, pool *Pool) *Thread {
	t := &Thread{
		ctx:  ctx,
		pool: pool,
		done: make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	go t.run()
	return t
}

// DispatchChunk queues one sealed chunk.
func (t *Thread) DispatchChunk(c *Chunk) {
	t.DispatchChunks([]*Chunk{c})
}

// DispatchChunks queues chunks atomically: no chunk from another caller is
// interleaved between them.
func (t *Thread) DispatchChunks(chunks []*Chunk) {
	if len(chunks) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		slogger().Error("cs: dispatch on closed thread dropped", "chunks", len(chunks))
		for _, c := range chunks {
			t.pool.Put(c)
		}
		return
	}
	for _, c := range chunks {
		t.queue = append(t.queue, queueItem{chunk: c})
	}
	t.cond.Broadcast()
}

// Synchronize blocks until every chunk queued before the call has executed.
func (t *Thread) Synchronize() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.sentinel++
	seq := t.sentinel
	t.queue = append(t.queue, queueItem{sentinel: seq})
	t.cond.Broadcast()
	for t.reached < seq {
		t.cond.Wait()
	}
}

// Chunks returns the number of chunks executed so far.
func (t *Thread) Chunks() uint64 { return t.chunks.Load() }

// Commands returns the number of commands executed so far.
func (t *Thread) Commands() uint64 { return t.commands.Load() }

// Close executes everything queued and stops the thread.
func (t *Thread) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return
	}
	t.closed = true
	t.cond.Broadcast()
	t.mu.Unlock()
	<-t.done
}

func (t *Thread) run() {
	defer close(t.done)
	for {
		t.mu.Lock()
		for len(t.queue) == 0 && !t.closed {
			t.cond.Wait()
		}
		if len(t.queue) == 0 {
			t.mu.Unlock()
			return
		}
		item := t.queue[0]
		t.queue[0] = queueItem{}
		t.queue = t.queue[1:]
		if item.chunk == nil {
			t.reached = item.sentinel
			t.cond.Broadcast()
			t.mu.Unlock()
			continue
		}
		t.mu.Unlock()

		item.chunk.Execute(t.ctx)
		t.commands.Add(uint64(item.chunk.Len()))
		t.chunks.Add(1)
		t.pool.Put(item.chunk)
	}
}
