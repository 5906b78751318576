package backend

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

// SoftwareConfig configures a SoftwareDevice.
type SoftwareConfig struct {
	// Name is reported by Info. Defaults to "software".
	Name string

	// LinearTiling enables linear-tiled images. Linear images are limited
	// to 2D, one mip level, one layer and one sample.
	LinearTiling bool

	// MaxExtent is the largest 1D/2D image dimension. Defaults to 16384.
	MaxExtent uint32

	// MaxExtent3D is the largest 3D image dimension. Defaults to 2048.
	MaxExtent3D uint32

	// MaxArrayLayers defaults to 2048.
	MaxArrayLayers uint32

	// SampleCounts defaults to 1 and 4 samples.
	SampleCounts gpucore.SampleCount

	// Extensions are the names accepted at bootstrap. The software device
	// implements none of them and only reports them back.
	Extensions []string
}

func (c *SoftwareConfig) setDefaults() {
	if c.Name == "" {
		c.Name = BackendSoftware
	}
	if c.MaxExtent == 0 {
		c.MaxExtent = 16384
	}
	if c.MaxExtent3D == 0 {
		c.MaxExtent3D = 2048
	}
	if c.MaxArrayLayers == 0 {
		c.MaxArrayLayers = 2048
	}
	if c.SampleCounts == 0 {
		c.SampleCounts = gpucore.SampleCount1 | gpucore.SampleCount4
	}
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func(cfg Config) (gpucore.Device, error) {
		sc := SoftwareConfig{LinearTiling: true}
		sc.Extensions = append(sc.Extensions, cfg.InstanceExtensions...)
		if cfg.DeviceExtensions != nil {
			sc.Extensions = append(sc.Extensions, cfg.DeviceExtensions(BackendSoftware)...)
		}
		return NewSoftwareDevice(sc), nil
	})
}

// SoftwareDevice is an in-memory gpucore.Device.
//
// Submitted command buffers execute in order on a dedicated goroutine that
// plays the role of the GPU. Memory operations act on Go byte slices, draws
// and dispatches are appended to an execution trace. The GPU timeline can
// be paused to hold submissions in flight.
//
// SoftwareDevice is safe for concurrent use.
type SoftwareDevice struct {
	cfg SoftwareConfig

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []softSubmission
	submitted uint64
	completed uint64
	paused    bool
	closed    bool

	traceMu sync.Mutex
	trace   []Event

	executed  atomic.Uint64
	destroyed atomic.Bool
	done      chan struct{}
}

type softSubmission struct {
	cb  *softCommandBuffer
	seq uint64
}

// NewSoftwareDevice creates a software device and starts its GPU goroutine.
func NewSoftwareDevice(cfg SoftwareConfig) *SoftwareDevice {
	cfg.setDefaults()
	d := &SoftwareDevice{
		cfg:  cfg,
		done: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// Info implements gpucore.Device.
func (d *SoftwareDevice) Info() gpucore.DeviceInfo {
	return gpucore.DeviceInfo{Name: d.cfg.Name, Backend: BackendSoftware, Driver: "reference"}
}

// ImageFormatProperties implements gpucore.Device.
func (d *SoftwareDevice) ImageFormatProperties(format gpucore.Format, typ gpucore.ImageType, tiling gpucore.Tiling, usage gpucore.ImageUsage, flags gpucore.ImageFlags) (gpucore.ImageFormatProperties, error) {
	info := format.Info()
	if info.ElementSize == 0 {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}
	if info.Compressed() && usage&(gpucore.ImageUsageColorAttachment|gpucore.ImageUsageStorage) != 0 {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}
	if format.IsDepthStencil() && (typ == gpucore.ImageType3D || usage&gpucore.ImageUsageColorAttachment != 0) {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}
	if !format.IsDepthStencil() && usage&gpucore.ImageUsageDepthStencilAttachment != 0 {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}

	props := gpucore.ImageFormatProperties{
		MaxExtent:      gpucore.Extent3D{Width: d.cfg.MaxExtent, Height: d.cfg.MaxExtent, Depth: 1},
		MaxArrayLayers: d.cfg.MaxArrayLayers,
		SampleCounts:   d.cfg.SampleCounts,
	}
	switch typ {
	case gpucore.ImageType1D:
		props.MaxExtent.Height = 1
		props.SampleCounts = gpucore.SampleCount1
	case gpucore.ImageType3D:
		props.MaxExtent = gpucore.Extent3D{Width: d.cfg.MaxExtent3D, Height: d.cfg.MaxExtent3D, Depth: d.cfg.MaxExtent3D}
		props.MaxArrayLayers = 1
		props.SampleCounts = gpucore.SampleCount1
	}
	if flags&gpucore.ImageFlagCubeCompatible != 0 && typ != gpucore.ImageType2D {
		return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
	}
	props.MaxMipLevels = gpucore.MipLevelCount(props.MaxExtent)

	if tiling == gpucore.TilingLinear {
		if !d.cfg.LinearTiling || typ != gpucore.ImageType2D || format.IsDepthStencil() || info.Compressed() {
			return gpucore.ImageFormatProperties{}, gpucore.ErrFormatNotSupported
		}
		props.MaxMipLevels = 1
		props.MaxArrayLayers = 1
		props.SampleCounts = gpucore.SampleCount1
	}
	return props, nil
}

// CreateBuffer implements gpucore.Device.
func (d *SoftwareDevice) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.Buffer, error) {
	if d.destroyed.Load() {
		return nil, gpucore.ErrDestroyed
	}
	if desc == nil || desc.Size == 0 {
		return nil, errors.New("software: buffer size must be positive")
	}
	return &softBuffer{desc: *desc, data: make([]byte, desc.Size)}, nil
}

// CreateImage implements gpucore.Device.
func (d *SoftwareDevice) CreateImage(desc *gpucore.ImageDesc) (gpucore.Image, error) {
	if d.destroyed.Load() {
		return nil, gpucore.ErrDestroyed
	}
	if desc == nil {
		return nil, errors.New("software: nil image descriptor")
	}
	props, err := d.ImageFormatProperties(desc.Format, desc.Type, desc.Tiling, desc.Usage, desc.Flags)
	if err != nil {
		return nil, errors.Wrapf(err, "software: create %s image", desc.Format)
	}
	if desc.Extent.Width > props.MaxExtent.Width || desc.Extent.Height > props.MaxExtent.Height ||
		desc.Extent.Depth > props.MaxExtent.Depth || desc.Layers > props.MaxArrayLayers ||
		desc.MipLevels > props.MaxMipLevels || desc.Samples&props.SampleCounts == 0 {
		return nil, errors.Newf("software: image %+v exceeds format limits %+v", desc.Extent, props)
	}
	size := gpucore.ImageSize(desc.Format, desc.Extent, desc.MipLevels, desc.Layers) * uint64(desc.Samples)
	return &softImage{desc: *desc, data: make([]byte, size)}, nil
}

// CreateShader implements gpucore.Device.
func (d *SoftwareDevice) CreateShader(desc *gpucore.ShaderDesc) (gpucore.Shader, error) {
	if desc == nil || len(desc.SPIRV) == 0 {
		return nil, errors.New("software: empty shader")
	}
	return &softShader{stage: desc.Stage, label: desc.Label}, nil
}

// CreatePipeline implements gpucore.Device.
func (d *SoftwareDevice) CreatePipeline(desc *gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	if desc == nil {
		return nil, errors.New("software: nil pipeline descriptor")
	}
	if !desc.IsCompute() && desc.Vertex == nil {
		return nil, errors.New("software: graphics pipeline without vertex shader")
	}
	return &softPipeline{desc: *desc}, nil
}

// CreateCommandBuffer implements gpucore.Device.
func (d *SoftwareDevice) CreateCommandBuffer() (gpucore.CommandBuffer, error) {
	if d.destroyed.Load() {
		return nil, gpucore.ErrDestroyed
	}
	return &softCommandBuffer{}, nil
}

// Submit implements gpucore.Device.
func (d *SoftwareDevice) Submit(cb gpucore.CommandBuffer, seq uint64) error {
	scb, ok := cb.(*softCommandBuffer)
	if !ok {
		return errors.Newf("software: foreign command buffer %T", cb)
	}
	if scb.state != cbExecutable {
		return errors.New("software: command buffer not ended")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.ErrDestroyed
	}
	if seq != d.submitted+1 {
		return errors.Newf("software: submission %d out of order, last %d", seq, d.submitted)
	}
	scb.state = cbPending
	d.submitted = seq
	d.queue = append(d.queue, softSubmission{cb: scb, seq: seq})
	d.cond.Broadcast()
	return nil
}

// Wait implements gpucore.Device.
func (d *SoftwareDevice) Wait(seq uint64, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.completed >= seq || timeout == 0 {
		return d.completed >= seq, nil
	}

	expired := false
	timer := time.AfterFunc(timeout, func() {
		d.mu.Lock()
		expired = true
		d.cond.Broadcast()
		d.mu.Unlock()
	})
	defer timer.Stop()

	for d.completed < seq && !expired && !d.closed {
		d.cond.Wait()
	}
	return d.completed >= seq, nil
}

// WaitIdle implements gpucore.Device.
func (d *SoftwareDevice) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.completed < d.submitted && !d.closed {
		d.cond.Wait()
	}
	return nil
}

// Destroy implements gpucore.Device. Queued submissions still execute.
func (d *SoftwareDevice) Destroy() {
	if d.destroyed.Swap(true) {
		return
	}
	d.mu.Lock()
	d.closed = true
	d.paused = false
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
}

// Extensions returns the extensions requested at bootstrap.
func (d *SoftwareDevice) Extensions() []string {
	return append([]string(nil), d.cfg.Extensions...)
}

// NativeHandles implements gpucore.HandleExporter. The device stands in
// for every handle; its adapter is its name.
func (d *SoftwareDevice) NativeHandles() gpucore.NativeHandles {
	return gpucore.NativeHandles{Instance: d, Adapter: d.cfg.Name, Device: d, Queue: d}
}

// NativeImage implements gpucore.HandleExporter.
func (d *SoftwareDevice) NativeImage(img gpucore.Image) any {
	if si, ok := img.(*softImage); ok {
		return si
	}
	return nil
}

// Adapters implements gpucore.HandleExporter.
func (d *SoftwareDevice) Adapters() []any { return []any{d.cfg.Name} }

// Pause holds the GPU timeline before the next submission starts.
func (d *SoftwareDevice) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

// Resume releases a paused GPU timeline.
func (d *SoftwareDevice) Resume() {
	d.mu.Lock()
	d.paused = false
	d.cond.Broadcast()
	d.mu.Unlock()
}

// Completed returns the last retired sequence number.
func (d *SoftwareDevice) Completed() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// Submitted returns the last submitted sequence number.
func (d *SoftwareDevice) Submitted() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitted
}

// Trace returns a copy of the execution trace.
func (d *SoftwareDevice) Trace() []Event {
	d.traceMu.Lock()
	defer d.traceMu.Unlock()
	return append([]Event(nil), d.trace...)
}

// ResetTrace clears the execution trace.
func (d *SoftwareDevice) ResetTrace() {
	d.traceMu.Lock()
	d.trace = nil
	d.traceMu.Unlock()
}

// ExecutedCommands returns the number of commands executed so far.
func (d *SoftwareDevice) ExecutedCommands() uint64 {
	return d.executed.Load()
}

func (d *SoftwareDevice) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for (len(d.queue) == 0 || d.paused) && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		sub := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.execute(sub)

		d.mu.Lock()
		d.completed = sub.seq
		d.cond.Broadcast()
		d.mu.Unlock()
	}
}

func (d *SoftwareDevice) execute(sub softSubmission) {
	st := &execState{dev: d, seq: sub.seq}
	for _, op := range sub.cb.ops {
		op(st)
		d.executed.Add(1)
	}
	sub.cb.state = cbRetired
}

func (d *SoftwareDevice) record(ev Event) {
	d.traceMu.Lock()
	d.trace = append(d.trace, ev)
	d.traceMu.Unlock()
}

type softBuffer struct {
	desc gpucore.BufferDesc
	data []byte
}

func (b *softBuffer) Size() uint64                { return b.desc.Size }
func (b *softBuffer) Memory() gpucore.MemoryFlags { return b.desc.Memory }
func (b *softBuffer) Destroy()                    {}

func (b *softBuffer) Data() []byte {
	if !b.desc.Memory.HostVisible() {
		return nil
	}
	return b.data
}

// Bytes returns the buffer contents regardless of memory type.
func (b *softBuffer) Bytes() []byte { return b.data }

type softImage struct {
	desc gpucore.ImageDesc
	data []byte
}

func (i *softImage) Desc() *gpucore.ImageDesc { return &i.desc }
func (i *softImage) Destroy()                 {}

func (i *softImage) SubresourceLayout(sub gpucore.Subresource) gpucore.SubresourceLayout {
	return gpucore.LinearLayout(i.desc.Format, i.desc.Extent, i.desc.MipLevels, sub)
}

func (i *softImage) Data() []byte {
	if i.desc.Tiling != gpucore.TilingLinear || !i.desc.Memory.HostVisible() {
		return nil
	}
	return i.data
}

type softShader struct {
	stage gpucore.ShaderStage
	label string
}

func (s *softShader) Stage() gpucore.ShaderStage { return s.stage }
func (s *softShader) Destroy()                   {}

type softPipeline struct {
	desc gpucore.PipelineDesc
}

func (p *softPipeline) Desc() *gpucore.PipelineDesc { return &p.desc }
func (p *softPipeline) Destroy()                    {}

// BufferBytes returns the contents of a buffer created by a SoftwareDevice,
// including device-local buffers. It returns nil for foreign buffers.
func BufferBytes(b gpucore.Buffer) []byte {
	if sb, ok := b.(*softBuffer); ok {
		return sb.data
	}
	return nil
}

// ImageBytes returns the tightly packed contents of an image created by a
// SoftwareDevice. It returns nil for foreign images.
func ImageBytes(img gpucore.Image) []byte {
	if si, ok := img.(*softImage); ok {
		return si.data
	}
	return nil
}
