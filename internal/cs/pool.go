package cs

import (
	"sync"
	"sync/atomic"
)

// Pool provides reuse of Chunk instances.
//
// Chunks are returned by the execution thread after replay and taken by any
// recording context, so the free list is locked.
//
// Pool is safe for concurrent use.
type Pool struct {
	capacity int

	mu   sync.Mutex
	free []*Chunk

	allocated atomic.Int64
}

// NewPool creates a pool of chunks holding capacity commands each. A
// non-positive capacity selects DefaultChunkCapacity.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultChunkCapacity
	}
	return &Pool{capacity: capacity}
}

// Capacity returns the command capacity of pooled chunks.
func (p *Pool) Capacity() int { return p.capacity }

// Get returns an empty, unsealed chunk.
func (p *Pool) Get() *Chunk {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return c
	}
	p.mu.Unlock()
	p.allocated.Add(1)
	return newChunk(p.capacity)
}

// Put resets c and makes it available again. Commands held by c are
// released for garbage collection.
func (p *Pool) Put(c *Chunk) {
	if c == nil {
		return
	}
	c.reset()
	p.mu.Lock()
	p.free = append(p.free, c)
	p.mu.Unlock()
}

// Allocated returns the number of chunks created by the pool.
func (p *Pool) Allocated() int64 { return p.allocated.Load() }
