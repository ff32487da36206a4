// Package framing accumulates raw link bytes until a frame can be decoded.
package framing

import (
	"errors"
	"fmt"
	"io"
)

// DefaultCapacity is the capacity used by peripheral links.
const DefaultCapacity = 256

// ErrOverflow indicates more undecodable bytes are buffered than the
// buffer can hold, which means the link is persistently out of sync.
var ErrOverflow = errors.New("framing buffer overflow")

// OverflowError reports the details of an overflow.
type OverflowError struct {
	Capacity int
	Buffered int
	Incoming int
}

// Error implements error.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("%v: %d buffered + %d incoming > %d", ErrOverflow, e.Buffered, e.Incoming, e.Capacity)
}

// Is matches ErrOverflow.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// Checkpoint is the number of bytes a decode attempt consumed.
type Checkpoint int

// Buffer is a fixed-capacity ring supporting speculative parsing.
// Decoding reads through a Cursor without consuming anything; only Flush
// with a captured Checkpoint discards bytes.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	data []byte
	head int
	size int
}

// New creates a Buffer. Non-positive capacity means DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return b.size
}

// Bytes returns a copy of the buffered bytes.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, b.size)
	n := copy(out, b.data[b.head:])
	copy(out[n:], b.data[:b.size-n])
	return out
}

// Ingest appends bytes. Nothing is appended if p doesn't fit.
func (b *Buffer) Ingest(p []byte) error {
	if b.size+len(p) > len(b.data) {
		return &OverflowError{Capacity: len(b.data), Buffered: b.size, Incoming: len(p)}
	}
	tail := (b.head + b.size) % len(b.data)
	n := copy(b.data[tail:], p)
	copy(b.data, p[n:])
	b.size += len(p)
	return nil
}

// Cursor creates a reader from the committed offset.
// A Cursor is invalidated by Flush and Skip.
func (b *Buffer) Cursor() *Cursor {
	return &Cursor{buf: b}
}

// Capture records how far the cursor has read.
func (b *Buffer) Capture(c *Cursor) Checkpoint {
	if c.buf != b {
		panic("framing: cursor of another buffer")
	}
	return Checkpoint(c.pos)
}

// Flush discards the bytes covered by the checkpoint.
func (b *Buffer) Flush(cp Checkpoint) {
	b.Skip(int(cp))
}

// Skip discards up to n leading bytes.
func (b *Buffer) Skip(n int) {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return
	}
	b.head = (b.head + n) % len(b.data)
	if b.size -= n; b.size == 0 {
		b.head = 0
	}
}

// Reset discards everything.
func (b *Buffer) Reset() {
	b.head, b.size = 0, 0
}

// Cursor reads buffered bytes without consuming them.
type Cursor struct {
	buf *Buffer
	pos int
}

// ReadByte implements io.ByteReader.
// It returns io.EOF at the end of the buffered bytes; bytes ingested
// later become readable through the same cursor.
func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= c.buf.size {
		return 0, io.EOF
	}
	b := c.buf.data[(c.buf.head+c.pos)%len(c.buf.data)]
	c.pos++
	return b, nil
}

// Consumed returns the number of bytes read so far.
func (c *Cursor) Consumed() int {
	return c.pos
}

// Rewind restarts reading from the committed offset.
func (c *Cursor) Rewind() {
	c.pos = 0
}
