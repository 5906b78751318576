package cs

import (
	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/internal/gpu"
)

// DefaultChunkCapacity is the number of commands a chunk holds by default.
const DefaultChunkCapacity = 256

// Chunk errors.
var (
	ErrChunkFull   = errors.New("cs: chunk full")
	ErrChunkSealed = errors.New("cs: chunk sealed")
)

// Chunk is a fixed-capacity batch of commands.
//
// A chunk is filled by one producer, sealed when handed off, replayed in
// order by the execution thread and then reset for reuse. A sealed chunk
// rejects appends.
type Chunk struct {
	cmds   []Command
	draws  int
	sealed bool
}

func newChunk(capacity int) *Chunk {
	return &Chunk{cmds: make([]Command, 0, capacity)}
}

// Append adds a command. It fails with ErrChunkFull or ErrChunkSealed.
func (c *Chunk) Append(cmd Command) error {
	if c.sealed {
		return ErrChunkSealed
	}
	if len(c.cmds) == cap(c.cmds) {
		return ErrChunkFull
	}
	c.cmds = append(c.cmds, cmd)
	if cmd.Type().IsDraw() {
		c.draws++
	}
	return nil
}

// Len returns the number of commands.
func (c *Chunk) Len() int { return len(c.cmds) }

// Cap returns the command capacity.
func (c *Chunk) Cap() int { return cap(c.cmds) }

// Empty reports whether the chunk holds no commands.
func (c *Chunk) Empty() bool { return len(c.cmds) == 0 }

// Full reports whether another command would not fit.
func (c *Chunk) Full() bool { return len(c.cmds) == cap(c.cmds) }

// Draws returns the number of draws and dispatches in the chunk.
func (c *Chunk) Draws() int { return c.draws }

// Seal marks the chunk ready for hand-off.
func (c *Chunk) Seal() { c.sealed = true }

// Sealed reports whether the chunk has been sealed.
func (c *Chunk) Sealed() bool { return c.sealed }

// Commands returns the recorded commands in order.
func (c *Chunk) Commands() []Command { return c.cmds }

// Execute replays every command against ctx.
func (c *Chunk) Execute(ctx *gpu.Context) {
	for _, cmd := range c.cmds {
		cmd.Exec(ctx)
	}
}

func (c *Chunk) reset() {
	clear(c.cmds)
	c.cmds = c.cmds[:0]
	c.draws = 0
	c.sealed = false
}
