// Package d3d11 implements a Direct3D 11 style device and context API on
// top of an explicit, Vulkan-like GPU API.
//
// # Overview
//
// Calls on a context are recorded as typed commands into fixed-size chunks.
// The immediate context hands full chunks to a single execution thread per
// device, which replays them in order into native command buffers. Deferred
// contexts keep their chunks in a CommandList that the immediate context
// executes later.
//
//	app goroutine          execution thread            GPU
//	-------------          ----------------            ---
//	ImmediateContext  -->  chunk queue (FIFO)  -->  command buffers
//	DeferredContext   -->  CommandList  --^          retire seq N
//	Map / Unmap       <--  completion tracker  <--------'
//
// # Quick Start
//
//	dev, err := d3d11.Open("software")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	ctx := dev.ImmediateContext()
//	ctx.SetRenderTargets([]*d3d11.Texture{target}, nil)
//	ctx.Draw(3, 0)
//	ctx.Flush()
//
// # Submission
//
// The immediate context submits on Flush, before a map that has to wait,
// and when MaxPendingDraws draws are pending at ExecuteCommandList or
// SetRenderTargets. Flush never waits for the GPU.
//
// # Mapping
//
// Buffers with CPU access live in host-visible memory and are renamed on
// MapWriteDiscard. Textures use one of three map modes fixed at creation,
// see DetermineMapMode. Maps on a deferred context are served from private
// scratch memory and uploaded when the command list runs.
//
// # Errors
//
// Errors match ErrInvalidArg, ErrWasStillDrawing, ErrUnsupported or
// ErrInvalidCall with errors.Is. Commands never fail once recorded: a
// native failure during replay is logged and panics.
//
// # Logging
//
// The package is silent by default. See SetLogger.
package d3d11
