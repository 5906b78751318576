// Package gpucore defines the explicit GPU API that the d3d11 translation
// layer records into.
//
// The interface mirrors a Vulkan-style object model: buffers and images are
// created with explicit memory properties and tiling, commands are recorded
// into command buffers, and submissions are tracked by monotonically
// increasing sequence numbers instead of per-submission fences.
//
//	               +-------------------+
//	               |   d3d11 contexts  |
//	               +---------+---------+
//	                         |
//	               +---------v---------+
//	               |  gpucore.Device   |
//	               +---------+---------+
//	                         |
//	         +---------------+---------------+
//	         |                               |
//	+--------v---------+           +---------v--------+
//	|  backend/native  |           | backend/software |
//	|  (wgpu hal)      |           | (in-memory)      |
//	+------------------+           +------------------+
//
// # Sequence numbers
//
// [Device.Submit] takes the sequence number the caller assigns to the
// submission. Sequence numbers start at 1 and increase by one per submission.
// [Device.Wait] reports whether the GPU has retired a given sequence number.
// Backends retire submissions in order.
//
// # Capability queries
//
// [Device.ImageFormatProperties] reports the limits for a format, image type,
// tiling, usage and flags combination. It returns [ErrFormatNotSupported]
// when the combination cannot be created at all.
package gpucore
