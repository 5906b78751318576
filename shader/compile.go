package shader

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/naga"

	"github.com/gogpu/d3d11/gpucore"
)

// Module is a validated SPIR-V module ready for gpucore.Device.CreateShader.
type Module struct {
	Label   string
	Stage   gpucore.ShaderStage
	SPIRV   []uint32
	Options Options
}

// Desc returns the creation description of the module.
func (m *Module) Desc() *gpucore.ShaderDesc {
	return &gpucore.ShaderDesc{Label: m.Label, Stage: m.Stage, SPIRV: m.SPIRV}
}

// Compile compiles WGSL source to a module for stage.
func Compile(stage gpucore.ShaderStage, label, wgsl string, opts Options) (*Module, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, errors.Wrapf(err, "shader: compile %s shader %q", stage, label)
	}
	words, err := Words(spirvBytes)
	if err != nil {
		return nil, err
	}
	return FromSPIRV(stage, label, words, opts)
}

// FromSPIRV validates a SPIR-V module and applies opts to a copy of it.
func FromSPIRV(stage gpucore.ShaderStage, label string, words []uint32, opts Options) (*Module, error) {
	if err := validate(words); err != nil {
		return nil, errors.Wrapf(err, "shader: %s shader %q", stage, label)
	}
	module := append([]uint32(nil), words...)

	if opts.UseStorageImageReadWithoutFormat {
		module = addCapability(module, capStorageImageReadWithoutFormat)
	}
	if opts.UseSimpleMinMaxClamp {
		if n := simplifyMinMax(module); n > 0 {
			slogger().Debug("shader: simplified min/max/clamp", "label", label, "count", n)
		}
	}
	return &Module{Label: label, Stage: stage, SPIRV: module, Options: opts}, nil
}
