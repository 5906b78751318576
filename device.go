package d3d11

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/cs"
	"github.com/gogpu/d3d11/internal/gpu"
)

// Device owns the execution thread, the immediate context and every
// resource created from it.
//
// Resource creation and deferred contexts are safe for concurrent use. The
// immediate context is not.
type Device struct {
	id      uuid.UUID
	opts    options
	backend gpucore.Device
	owned   bool

	gpu    *gpu.Device
	pool   *cs.Pool
	exec   *gpu.Context
	thread *cs.Thread

	// init records resource initialization outside the command stream. It
	// is submitted ahead of the immediate context's next submission.
	initMu      sync.Mutex
	init        *gpu.Context
	initPending bool

	immediate *ImmediateContext

	mu        sync.Mutex
	resources map[Resource]struct{}
	shaders   []*Shader

	closed atomic.Bool
	stats  statsCounter
}

// NewDevice creates a device recording into dev. The caller keeps ownership
// of dev and destroys it after Close.
func NewDevice(dev gpucore.Device, opts ...Option) (*Device, error) {
	o := newOptions(opts)
	if o.logger != nil {
		SetLogger(o.logger)
	}

	g := gpu.NewDevice(dev, o.formatCacheSize)
	exec, err := gpu.NewContext(g)
	if err != nil {
		g.Close()
		return nil, unsupported(err, "device %q", dev.Info().Name)
	}
	init, err := gpu.NewContext(g)
	if err != nil {
		exec.Discard()
		g.Close()
		return nil, unsupported(err, "device %q", dev.Info().Name)
	}

	pool := cs.NewPool(o.chunkCapacity)
	d := &Device{
		id:        uuid.New(),
		opts:      o,
		backend:   dev,
		gpu:       g,
		pool:      pool,
		exec:      exec,
		thread:    cs.NewThread(exec, pool),
		init:      init,
		resources: make(map[Resource]struct{}),
	}
	d.immediate = newImmediateContext(d)

	info := dev.Info()
	slogger().Info("d3d11: device created",
		"id", d.id, "name", info.Name, "backend", info.Backend,
		"maxPendingDraws", o.maxPendingDraws, "chunkCapacity", pool.Capacity())
	return d, nil
}

// Adopt is NewDevice for a backend device the returned Device takes over.
// Close destroys dev, and so does a failed Adopt.
func Adopt(dev gpucore.Device, opts ...Option) (*Device, error) {
	d, err := NewDevice(dev, opts...)
	if err != nil {
		dev.Destroy()
		return nil, err
	}
	d.owned = true
	return d, nil
}

// Open creates a device on the named backend. The backend device is
// destroyed by Close.
func Open(name string, opts ...Option) (*Device, error) {
	dev, err := backend.Open(name)
	if err != nil {
		return nil, unsupported(err, "backend %q", name)
	}
	return Adopt(dev, opts...)
}

// OpenDefault creates a device on the best available backend.
func OpenDefault(opts ...Option) (*Device, error) {
	dev, name, err := backend.OpenDefault()
	if err != nil {
		return nil, unsupported(err, "no backend")
	}
	slogger().Info("d3d11: backend selected", "backend", name)
	return Adopt(dev, opts...)
}

// ID uniquely identifies the device.
func (d *Device) ID() uuid.UUID { return d.id }

// Backend returns the explicit device the layer records into.
func (d *Device) Backend() gpucore.Device { return d.backend }

// Info describes the backend device.
func (d *Device) Info() gpucore.DeviceInfo { return d.backend.Info() }

// ImmediateContext returns the immediate context.
func (d *Device) ImmediateContext() *ImmediateContext { return d.immediate }

// MaxPendingDraws returns the auto-flush threshold of the immediate context.
func (d *Device) MaxPendingDraws() int { return d.opts.maxPendingDraws }

// IsInUse reports whether the GPU still uses r. It hands pending immediate
// work to the execution thread first, so it must be called from the
// goroutine driving the immediate context.
func (d *Device) IsInUse(r Resource) bool {
	d.immediate.synchronize()
	return r.tracked().IsInUse()
}

// ImageFormatProperties queries the limits of a format with optimal tiling.
func (d *Device) ImageFormatProperties(format gpucore.Format, typ gpucore.ImageType, usage gpucore.ImageUsage) (gpucore.ImageFormatProperties, error) {
	props, err := d.gpu.ImageFormatProperties(format, typ, gpucore.TilingOptimal, usage, 0)
	if err != nil {
		return props, unsupported(err, "format %s for %s images", format, typ)
	}
	return props, nil
}

func (d *Device) checkOpen() error {
	if d.closed.Load() {
		return ErrClosed
	}
	return nil
}

// initBuffer writes the initial contents of a new buffer.
func (d *Device) initBuffer(b *gpu.Buffer, data []byte) {
	if dst := b.Slice().Data(); dst != nil {
		copy(dst, data)
		return
	}
	d.initMu.Lock()
	defer d.initMu.Unlock()
	d.init.UpdateBuffer(b, 0, data)
	d.initPending = true
}

// initTexture moves a new texture to its resting layout and uploads the
// initial data.
func (d *Device) initTexture(t *Texture, initial []SubresourceData) error {
	packed := make([][]byte, len(initial))
	for i, sd := range initial {
		sub, _ := t.Subresource(uint32(i))
		row, slice, depth := t.levelPitch(sub.MipLevel)
		data, err := packSubresource(sd, row, slice, depth)
		if err != nil {
			return errors.Wrapf(err, "d3d11: texture %q subresource %d", t.desc.Label, i)
		}
		packed[i] = data
	}

	d.initMu.Lock()
	defer d.initMu.Unlock()
	d.init.InitializeImage(t.img)
	for i, data := range packed {
		sub, _ := t.Subresource(uint32(i))
		d.init.UploadImage(t.img, layers(sub), data)
	}
	d.initPending = true
	return nil
}

// flushInit submits pending initialization work.
func (d *Device) flushInit() {
	d.initMu.Lock()
	defer d.initMu.Unlock()
	if !d.initPending {
		return
	}
	d.init.Flush()
	d.initPending = false
}

// packSubresource returns sd as tightly packed rows and slices.
func packSubresource(sd SubresourceData, row, slice uint64, depth uint32) ([]byte, error) {
	rows := slice / row
	size := slice * uint64(depth)
	rowPitch := sd.RowPitch
	if rowPitch == 0 {
		rowPitch = row
	}
	depthPitch := sd.DepthPitch
	if depthPitch == 0 {
		depthPitch = rowPitch * rows
	}
	if rowPitch < row || depthPitch < rowPitch*rows {
		return nil, invalidArgf("d3d11: pitch %d/%d smaller than packed %d/%d", rowPitch, depthPitch, row, slice)
	}
	need := depthPitch*uint64(depth-1) + rowPitch*(rows-1) + row
	if uint64(len(sd.Data)) < need {
		return nil, invalidArgf("d3d11: initial data is %d bytes, want %d", len(sd.Data), need)
	}
	if rowPitch == row && depthPitch == slice {
		return sd.Data[:size], nil
	}
	out := make([]byte, size)
	for z := range uint64(depth) {
		for y := range rows {
			src := sd.Data[z*depthPitch+y*rowPitch:]
			copy(out[z*slice+y*row:z*slice+(y+1)*row], src[:row])
		}
	}
	return out, nil
}

// Close submits outstanding work, waits for the GPU and destroys every
// resource. Using the device afterwards fails with ErrClosed.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.immediate.Flush()
	d.immediate.synchronize()
	d.thread.Close()
	d.gpu.WaitForIdle()

	d.immediate.stream.Release()
	d.exec.Discard()
	d.init.Discard()

	d.mu.Lock()
	resources := d.resources
	shaders := d.shaders
	d.resources, d.shaders = nil, nil
	d.mu.Unlock()
	for r := range resources {
		r.destroy()
	}
	for _, s := range shaders {
		s.handle.Destroy()
	}

	d.gpu.Close()
	if d.owned {
		d.backend.Destroy()
	}
	slogger().Info("d3d11: device closed", "id", d.id, "submissions", d.gpu.Submissions())
	return nil
}
