// Package hal provides the link collaborators used by protocol drivers:
// the transmit sink, the continuously refilled receive ring, the wake
// signal and timers.
package hal

import "io"

// ByteSink transmits bytes.
type ByteSink interface {
	io.Writer
	// Flush blocks until written bytes are physically transmitted.
	Flush() error
}

// ByteSource is a fixed-size receive region refilled in the background.
type ByteSource interface {
	// Start activates reception. It's a no-op if already active.
	Start() error
	// Stop deactivates reception.
	Stop()
	// Peek hands the filled region and the remaining capacity to fn,
	// without consuming anything. filled must not be retained.
	Peek(fn func(filled []byte, remaining int) error) error
	// Restart resumes filling from the region start, discarding what
	// the last Peek handed out.
	Restart()
}

// Drainer is implemented by writers which can wait for transmission,
// e.g. serial ports.
type Drainer interface {
	Drain() error
}
