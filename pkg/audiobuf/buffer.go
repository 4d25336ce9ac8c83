package audiobuf

import (
	"errors"

	"github.com/smallnest/ringbuffer"
)

// DefaultCapacity bounds one utterance worth of 16-bit PCM. At 44.1kHz mono
// that is a bit over 45 seconds of speech.
const DefaultCapacity = 4 * 1024 * 1024

var ErrFull = errors.New("audio buffer full")

// Buffer accumulates raw PCM chunks for one listening phase. Chunks are kept
// in arrival order; Snapshot drains the buffer so audio is consumed, never
// retained across turns.
type Buffer struct {
	rb *ringbuffer.RingBuffer
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		rb: ringbuffer.New(capacity).SetBlocking(false),
	}
}

// Append adds one chunk. A chunk that does not fit is rejected whole rather
// than partially written.
func (b *Buffer) Append(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	if len(chunk) > b.rb.Free() {
		return ErrFull
	}
	_, err := b.rb.Write(chunk)
	return err
}

// Snapshot returns everything accumulated so far, in write order, and
// resets the buffer.
func (b *Buffer) Snapshot() []byte {
	data := b.rb.Bytes(nil)
	b.rb.Reset()
	return data
}

// Reset discards any buffered audio.
func (b *Buffer) Reset() {
	b.rb.Reset()
}

func (b *Buffer) Len() int {
	return b.rb.Length()
}

func (b *Buffer) Capacity() int {
	return b.rb.Capacity()
}
