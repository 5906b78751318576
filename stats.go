package d3d11

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/d3d11/internal/cache"
	"github.com/gogpu/d3d11/internal/gpu"
)

// MemoryStats contains device memory usage statistics.
type MemoryStats = gpu.MemoryStats

// CacheStats counts lookups in one of the device caches.
type CacheStats = cache.Stats

// Stats is a snapshot of device activity.
type Stats struct {
	// Submissions is the number of command buffers submitted to the GPU.
	Submissions uint64

	// Retired is the last submission the GPU finished.
	Retired uint64

	// Chunks and Commands count what the execution thread replayed.
	Chunks   uint64
	Commands uint64

	// ChunksAllocated is the number of chunks the pool created.
	ChunksAllocated int64

	// Flushes counts immediate context flushes that submitted work, and
	// FlushTime is the time the calling goroutine spent in them.
	Flushes   uint64
	FlushTime time.Duration

	// Waits counts maps and releases that blocked on the GPU.
	Waits    uint64
	WaitTime time.Duration
	MaxWait  time.Duration

	// StillDrawing counts maps that failed with ErrWasStillDrawing.
	StillDrawing uint64

	Memory MemoryStats

	// Formats and Pipelines describe the format capability and pipeline
	// caches.
	Formats   CacheStats
	Pipelines CacheStats
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Stats[%d submissions, %d chunks, %d commands, %d flushes in %v, %d waits in %v (max %v), %s]",
		s.Submissions, s.Chunks, s.Commands, s.Flushes, s.FlushTime, s.Waits, s.WaitTime, s.MaxWait, s.Memory)
}

type statsCounter struct {
	flushes      atomic.Uint64
	flushTime    atomic.Int64
	waits        atomic.Uint64
	waitTime     atomic.Int64
	maxWait      atomic.Int64
	stillDrawing atomic.Uint64
}

func (c *statsCounter) flushed(d time.Duration) {
	c.flushes.Add(1)
	c.flushTime.Add(int64(d))
}

func (c *statsCounter) waited(d time.Duration) {
	c.waits.Add(1)
	c.waitTime.Add(int64(d))
	for {
		cur := c.maxWait.Load()
		if int64(d) <= cur || c.maxWait.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

// Stats returns a snapshot of device activity.
func (d *Device) Stats() Stats {
	return Stats{
		Submissions:     d.gpu.Submissions(),
		Retired:         d.gpu.Tracker().Retired(),
		Chunks:          d.thread.Chunks(),
		Commands:        d.thread.Commands(),
		ChunksAllocated: d.pool.Allocated(),
		Flushes:         d.stats.flushes.Load(),
		FlushTime:       time.Duration(d.stats.flushTime.Load()),
		Waits:           d.stats.waits.Load(),
		WaitTime:        time.Duration(d.stats.waitTime.Load()),
		MaxWait:         time.Duration(d.stats.maxWait.Load()),
		StillDrawing:    d.stats.stillDrawing.Load(),
		Memory:          d.gpu.MemoryStats(),
		Formats:         d.gpu.FormatCacheStats(),
		Pipelines:       d.gpu.PipelineCacheStats(),
	}
}
