package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/cache"
)

// formatKey identifies an image format capability query.
type formatKey struct {
	format gpucore.Format
	typ    gpucore.ImageType
	tiling gpucore.Tiling
	usage  gpucore.ImageUsage
	flags  gpucore.ImageFlags
}

type formatResult struct {
	props gpucore.ImageFormatProperties
	err   error
}

// Device wraps a gpucore.Device with submission tracking and caches.
//
// Device is safe for concurrent use.
type Device struct {
	backend gpucore.Device
	tracker *Tracker

	formats   *cache.Cache[formatKey, formatResult]
	pipelines *cache.Cache[gpucore.PipelineDesc, gpucore.Pipeline]

	submitMu sync.Mutex
	seq      uint64

	submissions atomic.Uint64
	memory      memoryCounter
}

// NewDevice wraps backend. formatCacheSize bounds the capability query
// cache; zero means unbounded.
func NewDevice(backend gpucore.Device, formatCacheSize int) *Device {
	return &Device{
		backend:   backend,
		tracker:   NewTracker(backend),
		formats:   cache.New[formatKey, formatResult](formatCacheSize),
		pipelines: cache.New[gpucore.PipelineDesc, gpucore.Pipeline](0),
	}
}

// Backend returns the wrapped device.
func (d *Device) Backend() gpucore.Device { return d.backend }

// Tracker returns the completion tracker.
func (d *Device) Tracker() *Tracker { return d.tracker }

// ImageFormatProperties queries format limits, caching the answer.
func (d *Device) ImageFormatProperties(format gpucore.Format, typ gpucore.ImageType, tiling gpucore.Tiling, usage gpucore.ImageUsage, flags gpucore.ImageFlags) (gpucore.ImageFormatProperties, error) {
	key := formatKey{format, typ, tiling, usage, flags}
	r := d.formats.GetOrCreate(key, func() formatResult {
		props, err := d.backend.ImageFormatProperties(format, typ, tiling, usage, flags)
		return formatResult{props, err}
	})
	return r.props, r.err
}

// CreateShader compiles a SPIR-V module on the backend.
func (d *Device) CreateShader(desc *gpucore.ShaderDesc) (gpucore.Shader, error) {
	s, err := d.backend.CreateShader(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "gpu: create %s shader %q", desc.Stage, desc.Label)
	}
	return s, nil
}

// Pipeline returns the pipeline for desc, creating it on first use.
// Pipelines live until the device is closed.
func (d *Device) Pipeline(desc *gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	return d.pipelines.GetOrCreateErr(*desc, func() (gpucore.Pipeline, error) {
		p, err := d.backend.CreatePipeline(desc)
		if err != nil {
			return nil, errors.Wrap(err, "gpu: create pipeline")
		}
		slogger().Debug("gpu: pipeline created", "compute", desc.IsCompute(), "topology", desc.Topology)
		return p, nil
	})
}

// CreateCommandList allocates a command list and begins recording.
func (d *Device) CreateCommandList() (*CommandList, error) {
	cb, err := d.backend.CreateCommandBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "gpu: create command buffer")
	}
	if err := cb.Begin(); err != nil {
		cb.Destroy()
		return nil, errors.Wrap(err, "gpu: begin command buffer")
	}
	return &CommandList{
		dev:       d,
		cmd:       cb,
		resources: make(map[*Resource]struct{}),
	}, nil
}

// Submit ends nothing: the list must already be ended. It assigns the next
// sequence number, submits the command buffer, and hands the list to the
// tracker, which releases it once the GPU retires it.
func (d *Device) Submit(l *CommandList) (uint64, error) {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	seq := d.seq + 1
	if err := d.backend.Submit(l.cmd, seq); err != nil {
		return 0, errors.Wrapf(err, "gpu: submit %d", seq)
	}
	d.seq = seq
	l.markSubmitted(seq)
	d.tracker.Track(seq, l.retire)
	d.submissions.Add(1)
	return seq, nil
}

// Submissions returns the number of submissions so far.
func (d *Device) Submissions() uint64 { return d.submissions.Load() }

// MemoryStats returns current allocation statistics.
func (d *Device) MemoryStats() MemoryStats { return d.memory.stats() }

// FormatCacheStats returns the counters of the format capability cache.
func (d *Device) FormatCacheStats() cache.Stats { return d.formats.Stats() }

// PipelineCacheStats returns the counters of the pipeline cache.
func (d *Device) PipelineCacheStats() cache.Stats { return d.pipelines.Stats() }

// WaitForIdle blocks until all submitted work has retired.
func (d *Device) WaitForIdle() {
	d.tracker.WaitIdle()
}

// Close waits for the GPU, destroys cached pipelines and stops the tracker.
// It does not destroy the backend.
func (d *Device) Close() {
	d.tracker.Close()
	d.pipelines.Range(func(_ gpucore.PipelineDesc, p gpucore.Pipeline) bool {
		p.Destroy()
		return true
	})
	d.pipelines.Clear()
}
