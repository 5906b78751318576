// Package cs implements the command stream: typed commands, fixed-capacity
// chunks and the execution thread that replays them.
//
// # Flow
//
//	context goroutine          execution thread
//	-----------------          ----------------
//	Stream.Emit(cmd)
//	  chunk full -> seal -> Sink -> Thread.DispatchChunks
//	                                   queue (FIFO) -> Chunk.Execute(gpu.Context)
//	                                                -> Pool.Put(chunk)
//
// Immediate contexts hand chunks straight to the Thread. Deferred contexts
// collect them in a command list that is later dispatched as a whole.
//
// Commands never return errors. A native failure while replaying is logged
// and panics on the execution thread.
package cs
