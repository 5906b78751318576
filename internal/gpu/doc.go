// Package gpu records and submits explicit GPU work for the d3d11 layer.
//
// It sits between the command stream (internal/cs) and a gpucore.Device:
//
//	cs.Thread -> Context (binds state, records commands)
//	          -> CommandList (native command buffer + tracked resources)
//	          -> Device.Submit (assigns sequence numbers)
//	          -> Tracker (observes retirement, wakes waiters)
//
// # Resources
//
// Buffers are renamed rather than synchronized: a discard map allocates a
// fresh physical slice and the execution thread swaps it in with
// Context.InvalidateBuffer. Retired slices are recycled once no command list
// references them. Images carry their current layout, owned by the
// execution thread.
//
// # Threading
//
// A Context is driven by exactly one goroutine. Device, Tracker, Buffer
// slice allocation and the caches are safe for concurrent use.
package gpu
