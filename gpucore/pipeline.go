package gpucore

// MaxColorTargets is the number of simultaneously bound color attachments.
const MaxColorTargets = 8

// MaxVertexBuffers is the number of vertex buffer binding slots.
const MaxVertexBuffers = 16

// MaxViewports is the number of viewports and scissor rectangles.
const MaxViewports = 16

// Topology is the primitive topology of a graphics pipeline.
type Topology uint8

// Primitive topologies.
const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

// CullMode selects which faces are discarded.
type CullMode uint8

// Cull modes.
const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// CompareOp is a depth or stencil comparison.
type CompareOp uint8

// Comparison operators.
const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// BlendFactor is a blend equation factor.
type BlendFactor uint8

// Blend factors.
const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendConstant
	BlendOneMinusConstant
)

// BlendOp is a blend equation operator.
type BlendOp uint8

// Blend operators.
const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// BlendMode is the blend state of one color attachment.
type BlendMode struct {
	Enable    bool
	SrcColor  BlendFactor
	DstColor  BlendFactor
	ColorOp   BlendOp
	SrcAlpha  BlendFactor
	DstAlpha  BlendFactor
	AlphaOp   BlendOp
	WriteMask uint8
}

// RasterState is the fixed-function rasterizer state.
type RasterState struct {
	Cull             CullMode
	FrontCCW         bool
	Wireframe        bool
	DepthClip        bool
	ScissorEnable    bool
	DepthBias        int32
	DepthBiasClamp   float32
	SlopeScaledDepth float32
}

// DepthStencilState is the fixed-function depth and stencil state.
type DepthStencilState struct {
	DepthTest    bool
	DepthWrite   bool
	DepthCompare CompareOp
	StencilTest  bool
}

// PipelineDesc describes a pipeline. It is comparable and used as a cache
// key. A pipeline with a compute shader is a compute pipeline and ignores
// every other field.
type PipelineDesc struct {
	Vertex   Shader
	Fragment Shader
	Compute  Shader

	Topology     Topology
	Raster       RasterState
	DepthStencil DepthStencilState
	Blend        [MaxColorTargets]BlendMode
	SampleMask   uint32

	ColorFormats [MaxColorTargets]Format
	DepthFormat  Format
	Samples      SampleCount
}

// IsCompute reports whether the description is a compute pipeline.
func (d *PipelineDesc) IsCompute() bool {
	return d.Compute != nil
}
