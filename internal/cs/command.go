package cs

import (
	"github.com/gogpu/d3d11/gpucore"
	"github.com/gogpu/d3d11/internal/gpu"
)

// CommandType identifies the type of a command.
type CommandType uint8

const (
	// State commands
	CmdSetShaders       CommandType = iota // Bind vertex, fragment and compute shaders
	CmdSetPipelineState                    // Set fixed-function state
	CmdSetBlendFactor                      // Set blend constants
	CmdSetStencilRef                       // Set stencil reference
	CmdSetVertexBuffers                    // Bind vertex buffers
	CmdSetIndexBuffer                      // Bind index buffer
	CmdSetViewports                        // Set viewports
	CmdSetScissors                         // Set scissor rectangles
	CmdSetRenderTargets                    // Bind render targets
	CmdSetState                            // Replace the whole state
	CmdResetState                          // Restore the default state

	// Work commands
	CmdDraw        // Non-indexed draw
	CmdDrawIndexed // Indexed draw
	CmdDispatch    // Compute dispatch
	CmdClearColor  // Clear a color image

	// Transfer commands
	CmdCopyBuffer        // Buffer to buffer copy
	CmdCopyImage         // Whole image copy
	CmdCopyBufferToImage // Buffer to image region copy
	CmdCopyImageToBuffer // Image region to buffer copy
	CmdUpdateBuffer      // Write bytes into a buffer range
	CmdInvalidateBuffer  // Rename a buffer to a new slice
	CmdUploadBuffer      // Replace buffer contents
	CmdUploadImage       // Replace a subresource
	CmdInitImage         // Move a new image to its resting layout

	// Queue commands
	CmdSubmit // End, submit and restart the native command list
	CmdFunc   // Run a callback on the execution thread
)

var commandTypeNames = [...]string{
	CmdSetShaders:        "SetShaders",
	CmdSetPipelineState:  "SetPipelineState",
	CmdSetBlendFactor:    "SetBlendFactor",
	CmdSetStencilRef:     "SetStencilRef",
	CmdSetVertexBuffers:  "SetVertexBuffers",
	CmdSetIndexBuffer:    "SetIndexBuffer",
	CmdSetViewports:      "SetViewports",
	CmdSetScissors:       "SetScissors",
	CmdSetRenderTargets:  "SetRenderTargets",
	CmdSetState:          "SetState",
	CmdResetState:        "ResetState",
	CmdDraw:              "Draw",
	CmdDrawIndexed:       "DrawIndexed",
	CmdDispatch:          "Dispatch",
	CmdClearColor:        "ClearColor",
	CmdCopyBuffer:        "CopyBuffer",
	CmdCopyImage:         "CopyImage",
	CmdCopyBufferToImage: "CopyBufferToImage",
	CmdCopyImageToBuffer: "CopyImageToBuffer",
	CmdUpdateBuffer:      "UpdateBuffer",
	CmdInvalidateBuffer:  "InvalidateBuffer",
	CmdUploadBuffer:      "UploadBuffer",
	CmdUploadImage:       "UploadImage",
	CmdInitImage:         "InitImage",
	CmdSubmit:            "Submit",
	CmdFunc:              "Func",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// IsDraw reports whether the command counts towards the pending draw total.
func (c CommandType) IsDraw() bool {
	return c == CmdDraw || c == CmdDrawIndexed || c == CmdDispatch
}

// Command is a recorded operation replayed on the execution thread.
//
// Commands are immutable once emitted. Any slice they carry is owned by the
// command.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType

	// Exec applies the command to the recording context.
	Exec(ctx *gpu.Context)
}

// --------------------------------------------------------------------------
// State Commands
// --------------------------------------------------------------------------

// SetShadersCommand binds shaders. A nil shader unbinds the stage.
type SetShadersCommand struct {
	Vertex, Fragment, Compute gpucore.Shader
}

// Type implements Command.
func (SetShadersCommand) Type() CommandType { return CmdSetShaders }

// Exec implements Command.
func (c SetShadersCommand) Exec(ctx *gpu.Context) {
	ctx.SetShaders(c.Vertex, c.Fragment, c.Compute)
}

// SetPipelineStateCommand sets the fixed-function state.
type SetPipelineStateCommand struct {
	Topology     gpucore.Topology
	Raster       gpucore.RasterState
	DepthStencil gpucore.DepthStencilState
	Blend        [gpucore.MaxColorTargets]gpucore.BlendMode
	SampleMask   uint32
}

// Type implements Command.
func (SetPipelineStateCommand) Type() CommandType { return CmdSetPipelineState }

// Exec implements Command.
func (c SetPipelineStateCommand) Exec(ctx *gpu.Context) {
	ctx.SetPipelineState(c.Topology, c.Raster, c.DepthStencil, c.Blend, c.SampleMask)
}

// SetBlendFactorCommand sets the blend constants.
type SetBlendFactorCommand struct {
	Factor [4]float32
}

// Type implements Command.
func (SetBlendFactorCommand) Type() CommandType { return CmdSetBlendFactor }

// Exec implements Command.
func (c SetBlendFactorCommand) Exec(ctx *gpu.Context) { ctx.SetBlendConstants(c.Factor) }

// SetStencilRefCommand sets the stencil reference.
type SetStencilRefCommand struct {
	Ref uint32
}

// Type implements Command.
func (SetStencilRefCommand) Type() CommandType { return CmdSetStencilRef }

// Exec implements Command.
func (c SetStencilRefCommand) Exec(ctx *gpu.Context) { ctx.SetStencilReference(c.Ref) }

// SetVertexBuffersCommand binds vertex buffers starting at slot First.
type SetVertexBuffersCommand struct {
	First    uint32
	Bindings []gpu.VertexBinding
}

// Type implements Command.
func (SetVertexBuffersCommand) Type() CommandType { return CmdSetVertexBuffers }

// Exec implements Command.
func (c SetVertexBuffersCommand) Exec(ctx *gpu.Context) { ctx.BindVertexBuffers(c.First, c.Bindings) }

// SetIndexBufferCommand binds the index buffer.
type SetIndexBufferCommand struct {
	Binding gpu.IndexBinding
}

// Type implements Command.
func (SetIndexBufferCommand) Type() CommandType { return CmdSetIndexBuffer }

// Exec implements Command.
func (c SetIndexBufferCommand) Exec(ctx *gpu.Context) { ctx.BindIndexBuffer(c.Binding) }

// SetViewportsCommand sets the viewports.
type SetViewportsCommand struct {
	Viewports []gpucore.Viewport
}

// Type implements Command.
func (SetViewportsCommand) Type() CommandType { return CmdSetViewports }

// Exec implements Command.
func (c SetViewportsCommand) Exec(ctx *gpu.Context) { ctx.SetViewports(c.Viewports) }

// SetScissorsCommand sets the scissor rectangles.
type SetScissorsCommand struct {
	Rects []gpucore.Rect
}

// Type implements Command.
func (SetScissorsCommand) Type() CommandType { return CmdSetScissors }

// Exec implements Command.
func (c SetScissorsCommand) Exec(ctx *gpu.Context) { ctx.SetScissors(c.Rects) }

// SetRenderTargetsCommand binds render targets.
type SetRenderTargetsCommand struct {
	Targets gpu.Targets
}

// Type implements Command.
func (SetRenderTargetsCommand) Type() CommandType { return CmdSetRenderTargets }

// Exec implements Command.
func (c SetRenderTargetsCommand) Exec(ctx *gpu.Context) { ctx.SetRenderTargets(c.Targets) }

// SetStateCommand replaces the whole state. It restores a context's state
// after a command list ran.
type SetStateCommand struct {
	State gpu.State
}

// Type implements Command.
func (SetStateCommand) Type() CommandType { return CmdSetState }

// Exec implements Command.
func (c SetStateCommand) Exec(ctx *gpu.Context) { ctx.SetState(c.State) }

// ResetStateCommand restores the default state.
type ResetStateCommand struct{}

// Type implements Command.
func (ResetStateCommand) Type() CommandType { return CmdResetState }

// Exec implements Command.
func (ResetStateCommand) Exec(ctx *gpu.Context) { ctx.ResetState() }

// --------------------------------------------------------------------------
// Work Commands
// --------------------------------------------------------------------------

// DrawCommand records a non-indexed draw.
type DrawCommand struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

// Exec implements Command.
func (c DrawCommand) Exec(ctx *gpu.Context) {
	ctx.Draw(c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
}

// DrawIndexedCommand records an indexed draw.
type DrawIndexedCommand struct {
	IndexCount, InstanceCount, FirstIndex uint32
	VertexOffset                          int32
	FirstInstance                         uint32
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// Exec implements Command.
func (c DrawIndexedCommand) Exec(ctx *gpu.Context) {
	ctx.DrawIndexed(c.IndexCount, c.InstanceCount, c.FirstIndex, c.VertexOffset, c.FirstInstance)
}

// DispatchCommand records a compute dispatch.
type DispatchCommand struct {
	X, Y, Z uint32
}

// Type implements Command.
func (DispatchCommand) Type() CommandType { return CmdDispatch }

// Exec implements Command.
func (c DispatchCommand) Exec(ctx *gpu.Context) { ctx.Dispatch(c.X, c.Y, c.Z) }

// ClearColorCommand clears a subresource range of a color image.
type ClearColorCommand struct {
	Image *gpu.Image
	Sub   gpucore.SubresourceLayers
	Color gpucore.ClearColor
}

// Type implements Command.
func (ClearColorCommand) Type() CommandType { return CmdClearColor }

// Exec implements Command.
func (c ClearColorCommand) Exec(ctx *gpu.Context) { ctx.ClearColorImage(c.Image, c.Sub, c.Color) }

// --------------------------------------------------------------------------
// Transfer Commands
// --------------------------------------------------------------------------

// CopyBufferCommand copies a byte range between buffers.
type CopyBufferCommand struct {
	Dst       *gpu.Buffer
	DstOffset uint64
	Src       *gpu.Buffer
	SrcOffset uint64
	Size      uint64
}

// Type implements Command.
func (CopyBufferCommand) Type() CommandType { return CmdCopyBuffer }

// Exec implements Command.
func (c CopyBufferCommand) Exec(ctx *gpu.Context) {
	ctx.CopyBuffer(c.Dst, c.DstOffset, c.Src, c.SrcOffset, c.Size)
}

// CopyImageCommand copies every subresource of Src into Dst.
type CopyImageCommand struct {
	Dst, Src *gpu.Image
}

// Type implements Command.
func (CopyImageCommand) Type() CommandType { return CmdCopyImage }

// Exec implements Command.
func (c CopyImageCommand) Exec(ctx *gpu.Context) { ctx.CopyImage(c.Dst, c.Src) }

// CopyBufferToImageCommand copies tightly packed buffer data into an image region.
type CopyBufferToImageCommand struct {
	Dst       *gpu.Image
	Sub       gpucore.SubresourceLayers
	Offset    gpucore.Offset3D
	Extent    gpucore.Extent3D
	Src       *gpu.Buffer
	SrcOffset uint64
}

// Type implements Command.
func (CopyBufferToImageCommand) Type() CommandType { return CmdCopyBufferToImage }

// Exec implements Command.
func (c CopyBufferToImageCommand) Exec(ctx *gpu.Context) {
	ctx.CopyBufferToImage(c.Dst, c.Sub, c.Offset, c.Extent, c.Src, c.SrcOffset)
}

// CopyImageToBufferCommand copies an image region into a buffer, tightly packed.
type CopyImageToBufferCommand struct {
	Dst       *gpu.Buffer
	DstOffset uint64
	Src       *gpu.Image
	Sub       gpucore.SubresourceLayers
	Offset    gpucore.Offset3D
	Extent    gpucore.Extent3D
}

// Type implements Command.
func (CopyImageToBufferCommand) Type() CommandType { return CmdCopyImageToBuffer }

// Exec implements Command.
func (c CopyImageToBufferCommand) Exec(ctx *gpu.Context) {
	ctx.CopyImageToBuffer(c.Dst, c.DstOffset, c.Src, c.Sub, c.Offset, c.Extent)
}

// UpdateBufferCommand writes Data at Offset in the current slice of Buffer.
type UpdateBufferCommand struct {
	Buffer *gpu.Buffer
	Offset uint64
	Data   []byte
}

// Type implements Command.
func (UpdateBufferCommand) Type() CommandType { return CmdUpdateBuffer }

// Exec implements Command.
func (c UpdateBufferCommand) Exec(ctx *gpu.Context) { ctx.UpdateBuffer(c.Buffer, c.Offset, c.Data) }

// InvalidateBufferCommand makes Slice the current slice of Buffer.
type InvalidateBufferCommand struct {
	Buffer *gpu.Buffer
	Slice  *gpu.BufferSlice
}

// Type implements Command.
func (InvalidateBufferCommand) Type() CommandType { return CmdInvalidateBuffer }

// Exec implements Command.
func (c InvalidateBufferCommand) Exec(ctx *gpu.Context) { ctx.InvalidateBuffer(c.Buffer, c.Slice) }

// UploadBufferCommand replaces the contents of Buffer with Data.
type UploadBufferCommand struct {
	Buffer *gpu.Buffer
	Data   []byte
}

// Type implements Command.
func (UploadBufferCommand) Type() CommandType { return CmdUploadBuffer }

// Exec implements Command.
func (c UploadBufferCommand) Exec(ctx *gpu.Context) { ctx.UploadBuffer(c.Buffer, c.Data) }

// UploadImageCommand replaces one subresource with tightly packed Data.
type UploadImageCommand struct {
	Image *gpu.Image
	Sub   gpucore.SubresourceLayers
	Data  []byte
}

// Type implements Command.
func (UploadImageCommand) Type() CommandType { return CmdUploadImage }

// Exec implements Command.
func (c UploadImageCommand) Exec(ctx *gpu.Context) { ctx.UploadImage(c.Image, c.Sub, c.Data) }

// InitImageCommand moves a new image to its resting layout.
type InitImageCommand struct {
	Image *gpu.Image
}

// Type implements Command.
func (InitImageCommand) Type() CommandType { return CmdInitImage }

// Exec implements Command.
func (c InitImageCommand) Exec(ctx *gpu.Context) { ctx.InitializeImage(c.Image) }

// --------------------------------------------------------------------------
// Queue Commands
// --------------------------------------------------------------------------

// SubmitCommand ends the native command list and submits it. Done, when
// set, receives the sequence number.
type SubmitCommand struct {
	Done func(seq uint64)
}

// Type implements Command.
func (SubmitCommand) Type() CommandType { return CmdSubmit }

// Exec implements Command.
func (c SubmitCommand) Exec(ctx *gpu.Context) {
	seq := ctx.Flush()
	if c.Done != nil {
		c.Done(seq)
	}
}

// FuncCommand runs Fn on the execution thread.
type FuncCommand struct {
	Fn func(ctx *gpu.Context)
}

// Type implements Command.
func (FuncCommand) Type() CommandType { return CmdFunc }

// Exec implements Command.
func (c FuncCommand) Exec(ctx *gpu.Context) { c.Fn(ctx) }
