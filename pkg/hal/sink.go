package hal

import (
	"bufio"
	"io"
)

// Sink implements ByteSink over an io.Writer.
// Writes are buffered until Flush.
type Sink struct {
	w  io.Writer
	bw *bufio.Writer
}

// NewSink creates a Sink.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w, bw: bufio.NewWriterSize(w, 64)}
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	return s.bw.Write(p)
}

// Flush implements ByteSink.
func (s *Sink) Flush() error {
	if err := s.bw.Flush(); err != nil {
		return err
	}
	if d, ok := s.w.(Drainer); ok {
		return d.Drain()
	}
	return nil
}
