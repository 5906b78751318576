// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/d3d11/gpucore"
)

// buffer is a HAL buffer. Host-visible buffers carry a CPU mirror.
type buffer struct {
	dev    *Device
	raw    hal.Buffer
	desc   gpucore.BufferDesc
	mirror []byte

	// lastWrite is the submission whose results the mirror still lacks.
	lastWrite atomic.Uint64
	once      sync.Once
}

func (b *buffer) Size() uint64                { return b.desc.Size }
func (b *buffer) Memory() gpucore.MemoryFlags { return b.desc.Memory }
func (b *buffer) Data() []byte                { return b.mirror }

func (b *buffer) Destroy() {
	b.once.Do(func() { b.dev.dev.DestroyBuffer(b.raw) })
}

// image is a HAL texture with a lazily created default view.
type image struct {
	dev  *Device
	raw  hal.Texture
	desc gpucore.ImageDesc

	viewOnce sync.Once
	view     hal.TextureView
	viewErr  error

	destroyOnce sync.Once
}

func (i *image) Desc() *gpucore.ImageDesc { return &i.desc }

// SubresourceLayout is only meaningful for linear images, which this
// backend never creates. It reports the packed layout used for copies.
func (i *image) SubresourceLayout(sub gpucore.Subresource) gpucore.SubresourceLayout {
	return gpucore.LinearLayout(i.desc.Format, i.desc.Extent, i.desc.MipLevels, sub)
}

func (i *image) Data() []byte { return nil }

// defaultView returns the view used as a render attachment.
func (i *image) defaultView() (hal.TextureView, error) {
	i.viewOnce.Do(func() {
		i.view, i.viewErr = i.dev.dev.CreateTextureView(i.raw, &hal.TextureViewDescriptor{Label: i.desc.Label})
		if i.viewErr != nil {
			i.viewErr = errors.Wrapf(i.viewErr, "native: default view of %q", i.desc.Label)
		}
	})
	return i.view, i.viewErr
}

func (i *image) Destroy() {
	i.destroyOnce.Do(func() {
		if i.view != nil {
			i.dev.dev.DestroyTextureView(i.view)
		}
		i.dev.dev.DestroyTexture(i.raw)
	})
}

type shader struct {
	dev   *Device
	raw   hal.ShaderModule
	stage gpucore.ShaderStage
	once  sync.Once
}

func (s *shader) Stage() gpucore.ShaderStage { return s.stage }

func (s *shader) Destroy() {
	s.once.Do(func() { s.dev.dev.DestroyShaderModule(s.raw) })
}

// shaderEntryPoint is the entry point name the shader compiler emits.
const shaderEntryPoint = "main"

type pipeline struct {
	dev     *Device
	desc    gpucore.PipelineDesc
	layout  hal.PipelineLayout
	render  hal.RenderPipeline
	compute hal.ComputePipeline
	once    sync.Once
}

func (p *pipeline) Desc() *gpucore.PipelineDesc { return &p.desc }

func (p *pipeline) Destroy() {
	p.once.Do(func() {
		if p.render != nil {
			p.dev.dev.DestroyRenderPipeline(p.render)
		}
		if p.compute != nil {
			p.dev.dev.DestroyComputePipeline(p.compute)
		}
		p.dev.dev.DestroyPipelineLayout(p.layout)
	})
}

func rawShader(s gpucore.Shader) (hal.ShaderModule, error) {
	ns, ok := s.(*shader)
	if !ok {
		return nil, errors.Newf("native: foreign shader %T", s)
	}
	return ns.raw, nil
}

func (d *Device) createPipeline(desc *gpucore.PipelineDesc) (*pipeline, error) {
	layout, err := d.dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: "d3d11"})
	if err != nil {
		return nil, errors.Wrap(err, "native: create pipeline layout")
	}
	p := &pipeline{dev: d, desc: *desc, layout: layout}

	if desc.IsCompute() {
		cs, err := rawShader(desc.Compute)
		if err == nil {
			p.compute, err = d.dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
				Label:   "d3d11 compute",
				Layout:  layout,
				Compute: hal.ComputeState{Module: cs, EntryPoint: shaderEntryPoint},
			})
		}
		if err != nil {
			d.dev.DestroyPipelineLayout(layout)
			return nil, errors.Wrap(err, "native: create compute pipeline")
		}
		return p, nil
	}

	if desc.Vertex == nil {
		d.dev.DestroyPipelineLayout(layout)
		return nil, errors.New("native: graphics pipeline without vertex shader")
	}
	vs, err := rawShader(desc.Vertex)
	if err != nil {
		d.dev.DestroyPipelineLayout(layout)
		return nil, err
	}
	rp := &hal.RenderPipelineDescriptor{
		Label:     "d3d11 graphics",
		Layout:    layout,
		Vertex:    hal.VertexState{Module: vs, EntryPoint: shaderEntryPoint},
		Primitive: primitiveState(desc),
		Multisample: gputypes.MultisampleState{
			Count: max(1, uint32(desc.Samples)),
			Mask:  uint64(desc.SampleMask),
		},
	}
	if desc.Fragment != nil {
		fs, err := rawShader(desc.Fragment)
		if err != nil {
			d.dev.DestroyPipelineLayout(layout)
			return nil, err
		}
		frag := &hal.FragmentState{Module: fs, EntryPoint: shaderEntryPoint}
		for i, f := range desc.ColorFormats {
			if f == gpucore.FormatUndefined {
				continue
			}
			tf, ok := textureFormat(f)
			if !ok {
				d.dev.DestroyPipelineLayout(layout)
				return nil, errors.Wrapf(gpucore.ErrFormatNotSupported, "native: color target %d %s", i, f)
			}
			frag.Targets = append(frag.Targets, gputypes.ColorTargetState{
				Format:    tf,
				Blend:     blendState(desc.Blend[i]),
				WriteMask: gputypes.ColorWriteMask(desc.Blend[i].WriteMask),
			})
		}
		rp.Fragment = frag
	}
	if desc.DepthFormat != gpucore.FormatUndefined {
		tf, ok := textureFormat(desc.DepthFormat)
		if !ok {
			d.dev.DestroyPipelineLayout(layout)
			return nil, errors.Wrapf(gpucore.ErrFormatNotSupported, "native: depth target %s", desc.DepthFormat)
		}
		ds := desc.DepthStencil
		compare := gputypes.CompareFunctionAlways
		if ds.DepthTest {
			compare = compareFunctions[ds.DepthCompare]
		}
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		rp.DepthStencil = &hal.DepthStencilState{
			Format:            tf,
			DepthWriteEnabled: ds.DepthTest && ds.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0xff,
			StencilWriteMask:  0xff,
		}
	}
	p.render, err = d.dev.CreateRenderPipeline(rp)
	if err != nil {
		d.dev.DestroyPipelineLayout(layout)
		return nil, errors.Wrap(err, "native: create render pipeline")
	}
	return p, nil
}
