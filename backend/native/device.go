// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpucore.Device on the Pure Go gogpu/wgpu HAL.
//
// Importing the package registers the "native" backend, which opens the
// first discrete or integrated Vulkan adapter. Host-visible buffers keep a
// CPU mirror that is uploaded through the queue at submit and refreshed
// from the GPU when the submission that wrote them retires. Linear-tiled
// images are not supported; callers fall back to shadow buffers.
package native

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan HAL

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
)

// waitForever bounds blocking fence waits.
const waitForever = time.Hour

// Limits reported by ImageFormatProperties. They match the guaranteed
// WebGPU defaults.
const (
	maxExtent2D    = 8192
	maxExtent3D    = 2048
	maxArrayLayers = 256
)

func init() {
	backend.Register(backend.BackendNative, func(cfg backend.Config) (gpucore.Device, error) {
		return Open(cfg)
	})
}

// Device is a gpucore.Device backed by a HAL device and its queue.
//
// Device is safe for concurrent use.
type Device struct {
	instance hal.Instance
	adapter  hal.Adapter
	adapters []any
	dev      hal.Device
	queue    hal.Queue
	fence    hal.Fence
	info     gpucore.DeviceInfo

	mu        sync.Mutex
	submitted uint64
	retired   uint64
	inflight  []*submission
	destroyed bool
}

type submission struct {
	seq       uint64
	cb        *commandBuffer
	raw       hal.CommandBuffer
	readbacks []*buffer
}

// Open creates a device on the first hardware Vulkan adapter, preferring
// discrete and integrated GPUs. The HAL exposes no extension switches, so
// requested extensions are logged and otherwise ignored.
func Open(cfg backend.Config) (*Device, error) {
	be, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, errors.Wrap(backend.ErrBackendNotAvailable, "native: vulkan HAL")
	}
	desc := &hal.InstanceDescriptor{Flags: 0}
	if cfg.Debug {
		desc.Flags = gputypes.InstanceFlagsDebug
	}
	instance, err := be.CreateInstance(desc)
	if err != nil {
		return nil, errors.Wrap(err, "native: create instance")
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, backend.ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if len(cfg.InstanceExtensions) > 0 {
		slogger().Warn("native: instance extensions not supported by the HAL", "extensions", cfg.InstanceExtensions)
	}
	if cfg.DeviceExtensions != nil {
		if exts := cfg.DeviceExtensions(selected.Info.Name); len(exts) > 0 {
			slogger().Warn("native: device extensions not supported by the HAL", "adapter", selected.Info.Name, "extensions", exts)
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, errors.Wrapf(err, "native: open adapter %q", selected.Info.Name)
	}
	d, err := NewDevice(open.Device, open.Queue, selected.Info.Name)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.adapter = selected.Adapter
	for i := range adapters {
		d.adapters = append(d.adapters, adapters[i].Adapter)
	}
	slogger().Info("native: device opened", "adapter", selected.Info.Name, "adapters", len(adapters), "debug", cfg.Debug)
	return d, nil
}

// NewDevice wraps an already opened HAL device. The device takes ownership
// of dev but not of its instance.
func NewDevice(dev hal.Device, queue hal.Queue, name string) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, errors.New("native: nil HAL device or queue")
	}
	fence, err := dev.CreateFence()
	if err != nil {
		return nil, errors.Wrap(err, "native: create timeline fence")
	}
	return &Device{
		dev:   dev,
		queue: queue,
		fence: fence,
		info:  gpucore.DeviceInfo{Name: name, Backend: backend.BackendNative, Driver: "gogpu/wgpu"},
	}, nil
}

// Info implements gpucore.Device.
func (d *Device) Info() gpucore.DeviceInfo { return d.info }

// ImageFormatProperties implements gpucore.Device.
func (d *Device) ImageFormatProperties(format gpucore.Format, typ gpucore.ImageType, tiling gpucore.Tiling, usage gpucore.ImageUsage, flags gpucore.ImageFlags) (gpucore.ImageFormatProperties, error) {
	if _, ok := textureFormat(format); !ok || tiling == gpucore.TilingLinear {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}
	if format.IsDepthStencil() {
		if typ != gpucore.ImageType2D || usage&(gpucore.ImageUsageColorAttachment|gpucore.ImageUsageStorage) != 0 {
			return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
		}
	} else if usage&gpucore.ImageUsageDepthStencilAttachment != 0 {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}
	if flags&gpucore.ImageFlagCubeCompatible != 0 && typ != gpucore.ImageType2D {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}

	props := gpucore.ImageFormatProperties{
		MaxExtent:      gpucore.Extent3D{Width: maxExtent2D, Height: maxExtent2D, Depth: 1},
		MaxArrayLayers: maxArrayLayers,
		SampleCounts:   gpucore.SampleCount1 | gpucore.SampleCount4,
	}
	switch typ {
	case gpucore.ImageType1D:
		props.MaxExtent.Height = 1
		props.MaxArrayLayers = 1
		props.SampleCounts = gpucore.SampleCount1
	case gpucore.ImageType3D:
		props.MaxExtent = gpucore.Extent3D{Width: maxExtent3D, Height: maxExtent3D, Depth: maxExtent3D}
		props.MaxArrayLayers = 1
		props.SampleCounts = gpucore.SampleCount1
	}
	if usage&gpucore.ImageUsageStorage != 0 {
		props.SampleCounts = gpucore.SampleCount1
	}
	props.MaxMipLevels = gpucore.MipLevelCount(props.MaxExtent)
	return props, nil
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.Buffer, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if desc == nil || desc.Size == 0 {
		return nil, errors.New("native: buffer size must be positive")
	}
	raw, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "native: create buffer %q", desc.Label)
	}
	b := &buffer{dev: d, raw: raw, desc: *desc}
	if desc.Memory.HostVisible() {
		b.mirror = make([]byte, desc.Size)
	}
	return b, nil
}

// CreateImage implements gpucore.Device.
func (d *Device) CreateImage(desc *gpucore.ImageDesc) (gpucore.Image, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, errors.New("native: nil image descriptor")
	}
	props, err := d.ImageFormatProperties(desc.Format, desc.Type, desc.Tiling, desc.Usage, desc.Flags)
	if err != nil {
		return nil, errors.Wrapf(err, "native: create %s image", desc.Format)
	}
	if desc.Extent.Width > props.MaxExtent.Width || desc.Extent.Height > props.MaxExtent.Height ||
		desc.Extent.Depth > props.MaxExtent.Depth || desc.Layers > props.MaxArrayLayers ||
		desc.MipLevels > props.MaxMipLevels || desc.Samples&props.SampleCounts == 0 {
		return nil, errors.Newf("native: image %+v exceeds format limits %+v", desc.Extent, props)
	}
	format, _ := textureFormat(desc.Format)
	raw, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          textureExtent(desc),
		MipLevelCount: desc.MipLevels,
		SampleCount:   uint32(desc.Samples),
		Dimension:     textureDimension(desc.Type),
		Format:        format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "native: create texture %q", desc.Label)
	}
	return &image{dev: d, raw: raw, desc: *desc}, nil
}

// CreateShader implements gpucore.Device.
func (d *Device) CreateShader(desc *gpucore.ShaderDesc) (gpucore.Shader, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if desc == nil || len(desc.SPIRV) == 0 {
		return nil, errors.New("native: empty shader")
	}
	raw, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: desc.SPIRV},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "native: create %s shader %q", desc.Stage, desc.Label)
	}
	return &shader{dev: d, raw: raw, stage: desc.Stage}, nil
}

// CreatePipeline implements gpucore.Device.
func (d *Device) CreatePipeline(desc *gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, errors.New("native: nil pipeline descriptor")
	}
	return d.createPipeline(desc)
}

// CreateCommandBuffer implements gpucore.Device.
func (d *Device) CreateCommandBuffer() (gpucore.CommandBuffer, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	enc, err := d.dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "d3d11"})
	if err != nil {
		return nil, errors.Wrap(err, "native: create command encoder")
	}
	return &commandBuffer{dev: d, enc: enc}, nil
}

// Submit implements gpucore.Device.
func (d *Device) Submit(cb gpucore.CommandBuffer, seq uint64) error {
	ncb, ok := cb.(*commandBuffer)
	if !ok {
		return errors.Newf("native: foreign command buffer %T", cb)
	}
	if ncb.state != cbExecutable {
		return errors.New("native: command buffer not ended")
	}

	// A mirror still waiting for GPU results is stale. Retire the writer
	// before uploading it again.
	var writer uint64
	for _, b := range ncb.uploads {
		writer = max(writer, b.lastWrite.Load())
	}
	if writer > 0 {
		if _, err := d.Wait(writer, waitForever); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return gpucore.ErrDestroyed
	}
	if seq != d.submitted+1 {
		return errors.Newf("native: submission %d out of order, last %d", seq, d.submitted)
	}
	for _, b := range ncb.uploads {
		d.queue.WriteBuffer(b.raw, 0, b.mirror)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{ncb.raw}, d.fence, seq); err != nil {
		return errors.Wrap(errors.CombineErrors(gpucore.ErrDeviceLost, err), "native: submit")
	}
	ncb.state = cbPending
	d.submitted = seq
	for _, b := range ncb.readbacks {
		b.lastWrite.Store(seq)
	}
	d.inflight = append(d.inflight, &submission{seq: seq, cb: ncb, raw: ncb.raw, readbacks: ncb.readbacks})
	slogger().Debug("native: submitted", "seq", seq, "uploads", len(ncb.uploads), "readbacks", len(ncb.readbacks))
	return nil
}

// Wait implements gpucore.Device.
func (d *Device) Wait(seq uint64, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	if d.retired >= seq {
		d.mu.Unlock()
		return true, nil
	}
	d.mu.Unlock()

	ok, err := d.dev.Wait(d.fence, seq, timeout)
	if err != nil {
		return false, errors.Wrap(errors.CombineErrors(gpucore.ErrDeviceLost, err), "native: wait")
	}
	if !ok {
		return false, nil
	}
	return true, d.retire(seq)
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	seq := d.submitted
	d.mu.Unlock()
	if seq == 0 {
		return nil
	}
	ok, err := d.Wait(seq, waitForever)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf("native: submission %d did not retire", seq)
	}
	return nil
}

// Destroy implements gpucore.Device. Pending work is waited for first.
func (d *Device) Destroy() {
	if err := d.WaitIdle(); err != nil {
		slogger().Error("native: wait before destroy failed", "error", err)
	}
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return
	}
	d.destroyed = true
	d.mu.Unlock()

	d.dev.DestroyFence(d.fence)
	d.dev.Destroy()
	if d.instance != nil {
		d.instance.Destroy()
	}
	slogger().Info("native: device destroyed", "name", d.info.Name)
}

// NativeHandles implements gpucore.HandleExporter. Values are the HAL
// instance, adapter, device and queue. The HAL uses one queue family.
func (d *Device) NativeHandles() gpucore.NativeHandles {
	h := gpucore.NativeHandles{Device: d.dev, Queue: d.queue}
	if d.instance != nil {
		h.Instance = d.instance
	}
	if d.adapter != nil {
		h.Adapter = d.adapter
	}
	return h
}

// NativeImage implements gpucore.HandleExporter. It returns the hal.Texture.
func (d *Device) NativeImage(img gpucore.Image) any {
	if i, ok := img.(*image); ok && i.dev == d {
		return i.raw
	}
	return nil
}

// Adapters implements gpucore.HandleExporter.
func (d *Device) Adapters() []any { return d.adapters }

// retire refreshes the mirrors written by every submission up to seq and
// frees their command buffers.
func (d *Device) retire(seq uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs error
	n := 0
	for _, s := range d.inflight {
		if s.seq > seq {
			break
		}
		for _, b := range s.readbacks {
			if err := d.queue.ReadBuffer(b.raw, 0, b.mirror); err != nil {
				errs = errors.CombineErrors(errs, errors.Wrapf(err, "native: read back %q", b.desc.Label))
			}
		}
		d.dev.FreeCommandBuffer(s.raw)
		s.cb.state = cbRetired
		n++
	}
	clear(d.inflight[:n])
	d.inflight = d.inflight[n:]
	d.retired = max(d.retired, seq)
	return errs
}

func (d *Device) checkAlive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return gpucore.ErrDestroyed
	}
	return nil
}
