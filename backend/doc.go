// Package backend provides pluggable gpucore.Device implementations.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The software backend is registered on import of this package; the native
// backend registers itself when its package is imported:
//
//	import _ "github.com/gogpu/d3d11/backend/native"
//
// # Backend Selection
//
// Use OpenDefault to open the best available device, or Open to request a
// specific backend by name:
//
//	dev, name, err := backend.OpenDefault()
//
//	dev, err := backend.Open("software")
//
// OpenConfig and OpenDefaultConfig pass a Config through to the factory,
// carrying the debug flag and the extensions requested by interop users.
//
// # Software Device
//
// SoftwareDevice executes command buffers on a goroutine standing in for the
// GPU. It is deterministic, supports pausing the GPU timeline, and records
// draws, dispatches, clears and copies in an execution trace. It is the
// device used by the package tests throughout this module.
//
// # Available Backends
//
// - "native": Vulkan through gogpu/wgpu hal
// - "software": in-memory reference device (always available)
package backend
