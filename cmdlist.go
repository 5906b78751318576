package d3d11

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/d3d11/internal/cs"
)

// CommandList is a finished recording of a deferred context.
//
// Executing a list hands its chunks over to the target, so a list can be
// executed once. Release drops a list that will not be executed.
type CommandList struct {
	id   uuid.UUID
	dev  *Device
	pool *cs.Pool

	mu       sync.Mutex
	chunks   []*cs.Chunk
	draws    int
	commands int
	consumed bool
}

func newCommandList(dev *Device) *CommandList {
	return &CommandList{id: uuid.New(), dev: dev, pool: dev.pool}
}

// ID uniquely identifies the list.
func (l *CommandList) ID() uuid.UUID { return l.id }

// Draws returns the number of draws and dispatches recorded.
func (l *CommandList) Draws() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.draws
}

// Chunks returns the number of chunks recorded.
func (l *CommandList) Chunks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chunks)
}

// Commands returns the number of commands recorded.
func (l *CommandList) Commands() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commands
}

// Consumed reports whether the list has been executed or released.
func (l *CommandList) Consumed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consumed
}

func (l *CommandList) add(ch *cs.Chunk) {
	l.mu.Lock()
	l.chunks = append(l.chunks, ch)
	l.draws += ch.Draws()
	l.commands += ch.Len()
	l.mu.Unlock()
}

// take transfers the chunks and the draw count to a context of dev. A list
// recorded on another device is left untouched.
func (l *CommandList) take(dev *Device) ([]*cs.Chunk, int, error) {
	if l == nil {
		return nil, 0, invalidCallf("d3d11: nil command list")
	}
	if l.dev != dev {
		return nil, 0, invalidCallf("d3d11: command list %s recorded on another device", l.id)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.consumed {
		return nil, 0, invalidCallf("d3d11: command list %s already executed", l.id)
	}
	l.consumed = true
	chunks := l.chunks
	l.chunks = nil
	return chunks, l.draws, nil
}

// Release drops the recorded commands of a list that was not executed.
func (l *CommandList) Release() {
	if l == nil {
		return
	}
	chunks, _, err := l.take(l.dev)
	if err != nil {
		return
	}
	for _, ch := range chunks {
		l.pool.Put(ch)
	}
}
