package d3d11

import (
	"github.com/google/uuid"

	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/shader"
)

// Shader is a compiled shader bound with SetShaders or SetComputeShader.
// Shaders live until the device is closed.
type Shader struct {
	id     uuid.UUID
	module *shader.Module
	handle gpucore.Shader
}

// CreateShader compiles WGSL source for stage with the device's shader
// options.
func (d *Device) CreateShader(stage gpucore.ShaderStage, label, wgsl string) (*Shader, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	m, err := shader.Compile(stage, label, wgsl, d.opts.shader)
	if err != nil {
		return nil, classify(ErrInvalidArg, err)
	}
	return d.createShader(m)
}

// CreateShaderFromSPIRV creates a shader from a SPIR-V module with the
// device's shader options applied.
func (d *Device) CreateShaderFromSPIRV(stage gpucore.ShaderStage, label string, words []uint32) (*Shader, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	m, err := shader.FromSPIRV(stage, label, words, d.opts.shader)
	if err != nil {
		return nil, classify(ErrInvalidArg, err)
	}
	return d.createShader(m)
}

func (d *Device) createShader(m *shader.Module) (*Shader, error) {
	handle, err := d.gpu.CreateShader(m.Desc())
	if err != nil {
		return nil, unsupported(err, "%s shader %q", m.Stage, m.Label)
	}
	s := &Shader{id: uuid.New(), module: m, handle: handle}
	d.mu.Lock()
	d.shaders = append(d.shaders, s)
	d.mu.Unlock()
	return s, nil
}

// ID uniquely identifies the shader.
func (s *Shader) ID() uuid.UUID { return s.id }

// Stage returns the pipeline stage.
func (s *Shader) Stage() gpucore.ShaderStage { return s.module.Stage }

// Module returns the SPIR-V module the shader was created from.
func (s *Shader) Module() *shader.Module { return s.module }

func (s *Shader) native() gpucore.Shader {
	if s == nil {
		return nil
	}
	return s.handle
}
