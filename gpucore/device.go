package gpucore

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Errors returned by backends.
var (
	// ErrFormatNotSupported is returned by ImageFormatProperties when a
	// format cannot be used with the requested type, tiling and usage.
	ErrFormatNotSupported = errors.New("gpucore: format not supported")

	// ErrDeviceLost is returned after a backend failure that invalidates the device.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrDestroyed is returned when a destroyed device is used.
	ErrDestroyed = errors.New("gpucore: device destroyed")
)

// Device is an explicit GPU device with a single queue.
//
// Create and query methods are safe for concurrent use. Submit must be called
// with strictly increasing sequence numbers.
type Device interface {
	// Info identifies the device.
	Info() DeviceInfo

	// ImageFormatProperties reports the creation limits for a format.
	ImageFormatProperties(format Format, typ ImageType, tiling Tiling, usage ImageUsage, flags ImageFlags) (ImageFormatProperties, error)

	CreateBuffer(desc *BufferDesc) (Buffer, error)
	CreateImage(desc *ImageDesc) (Image, error)
	CreateShader(desc *ShaderDesc) (Shader, error)
	CreatePipeline(desc *PipelineDesc) (Pipeline, error)
	CreateCommandBuffer() (CommandBuffer, error)

	// Submit queues a finished command buffer. The GPU retires seq once
	// the command buffer has executed.
	Submit(cb CommandBuffer, seq uint64) error

	// Wait blocks until seq has retired or the timeout elapses. A zero
	// timeout polls. It reports whether seq has retired.
	Wait(seq uint64, timeout time.Duration) (bool, error)

	// WaitIdle blocks until all submitted work has retired.
	WaitIdle() error

	// Destroy releases the device. Objects created from it must be
	// destroyed first.
	Destroy()
}

// Buffer is a linear allocation of device memory.
type Buffer interface {
	Size() uint64
	Memory() MemoryFlags

	// Data returns the CPU view of a host-visible buffer and nil otherwise.
	// CPU writes are visible to commands submitted afterwards.
	Data() []byte

	Destroy()
}

// Image is a formatted multi-dimensional allocation.
type Image interface {
	Desc() *ImageDesc

	// SubresourceLayout returns the memory layout of one subresource.
	// Only meaningful for linear images.
	SubresourceLayout(sub Subresource) SubresourceLayout

	// Data returns the CPU view of a host-visible linear image and nil
	// otherwise.
	Data() []byte

	Destroy()
}

// Shader is a compiled shader module.
type Shader interface {
	Stage() ShaderStage
	Destroy()
}

// Pipeline is a compiled graphics or compute pipeline.
type Pipeline interface {
	Desc() *PipelineDesc
	Destroy()
}

// RenderTargets are the attachments of a rendering scope.
type RenderTargets struct {
	Color [MaxColorTargets]Image
	Depth Image
}

// CommandBuffer records GPU commands.
//
// Draw and state commands are only valid between BeginRendering and
// EndRendering, except Dispatch which is only valid outside of it. A command
// buffer is recorded by one goroutine at a time.
type CommandBuffer interface {
	Begin() error
	End() error

	CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64)
	CopyBufferToImage(dst Image, sub SubresourceLayers, offset Offset3D, extent Extent3D, src Buffer, srcOffset uint64)
	CopyImageToBuffer(dst Buffer, dstOffset uint64, src Image, sub SubresourceLayers, offset Offset3D, extent Extent3D)
	CopyImage(dst Image, dstSub SubresourceLayers, src Image, srcSub SubresourceLayers, extent Extent3D)
	TransitionImage(img Image, from, to ImageLayout)
	ClearColorImage(img Image, sub SubresourceLayers, color ClearColor)

	BeginRendering(targets *RenderTargets)
	EndRendering()

	BindPipeline(p Pipeline)
	BindVertexBuffer(slot uint32, buf Buffer, offset uint64, stride uint32)
	BindIndexBuffer(buf Buffer, offset uint64, format IndexFormat)
	SetViewports(viewports []Viewport)
	SetScissors(rects []Rect)
	SetBlendConstants(c [4]float32)
	SetStencilReference(ref uint32)

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	Dispatch(x, y, z uint32)

	// Destroy releases an unsubmitted command buffer, or a submitted one
	// after its sequence number has retired.
	Destroy()
}

// NativeHandles are the backend objects behind a device. Their dynamic
// types are backend specific.
type NativeHandles struct {
	Instance    any
	Adapter     any
	Device      any
	Queue       any
	QueueFamily uint32
}

// HandleExporter is implemented by devices that expose their backend
// objects for interop.
type HandleExporter interface {
	NativeHandles() NativeHandles

	// NativeImage returns the backend object behind img, or nil if img was
	// not created by this device.
	NativeImage(img Image) any

	// Adapters lists the adapters of the device's instance in enumeration
	// order.
	Adapters() []any
}
