package cs

// Sink receives sealed chunks from a Stream.
type Sink func(*Chunk)

// Stream batches commands of one context into chunks.
//
// Emit appends to the current chunk. A full chunk is sealed and handed to
// the sink before a fresh one is started, so chunks are never handed off
// partially filled except by Flush.
//
// Stream is not safe for concurrent use; each context owns one.
type Stream struct {
	pool *Pool
	sink Sink
	cur  *Chunk

	handedOff uint64
	emitted   uint64
}

// NewStream creates a stream drawing chunks from pool.
func NewStream(pool *Pool, sink Sink) *Stream {
	return &Stream{pool: pool, sink: sink, cur: pool.Get()}
}

// SetSink redirects future hand-offs.
func (s *Stream) SetSink(sink Sink) { s.sink = sink }

// Emit records cmd.
func (s *Stream) Emit(cmd Command) {
	if err := s.cur.Append(cmd); err != nil {
		s.handOff()
		// A fresh chunk always has room.
		_ = s.cur.Append(cmd)
	}
	s.emitted++
	if s.cur.Full() {
		s.handOff()
	}
}

// Flush hands off the current chunk if it holds any command. It reports
// whether a chunk was handed off.
func (s *Stream) Flush() bool {
	if s.cur.Empty() {
		return false
	}
	s.handOff()
	return true
}

// Empty reports whether the current chunk holds no commands.
func (s *Stream) Empty() bool { return s.cur.Empty() }

// Draws returns the number of draws in the current chunk.
func (s *Stream) Draws() int { return s.cur.Draws() }

// HandedOff returns the number of chunks handed to the sink.
func (s *Stream) HandedOff() uint64 { return s.handedOff }

// Emitted returns the number of commands recorded.
func (s *Stream) Emitted() uint64 { return s.emitted }

// Release returns the current chunk to the pool, dropping its commands.
func (s *Stream) Release() {
	if s.cur != nil {
		s.pool.Put(s.cur)
		s.cur = nil
	}
}

func (s *Stream) handOff() {
	c := s.cur
	c.Seal()
	s.cur = s.pool.Get()
	s.handedOff++
	slogger().Debug("cs: chunk handed off", "commands", c.Len(), "draws", c.Draws())
	s.sink(c)
}
