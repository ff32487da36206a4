package hal

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// DefaultRxRingSize is the default size of the receive region.
const DefaultRxRingSize = 64

// ErrRxClosed indicates the receiver has stopped.
var ErrRxClosed = errors.New("receiver closed")

// RxRing implements ByteSource over an io.Reader.
// Run plays the role of the DMA engine: it fills the region from its
// start and raises Wake each time bytes land. The region is only
// accessed under the ring lock, so Peek is a handoff between the receive
// goroutine and the driver task. When the region is full the receiver
// waits for Restart instead of overwriting.
type RxRing struct {
	Reader io.Reader
	Wake   *Signal

	buf    []byte
	filled int
	peeked int
	active bool
	closed bool
	err    error
	lock   sync.Mutex
	space  *sync.Cond
}

// NewRxRing creates a RxRing. Non-positive size means DefaultRxRingSize.
func NewRxRing(r io.Reader, size int, wake *Signal) *RxRing {
	if size <= 0 {
		size = DefaultRxRingSize
	}
	ring := &RxRing{Reader: r, Wake: wake, buf: make([]byte, size)}
	ring.space = sync.NewCond(&ring.lock)
	return ring
}

// Start implements ByteSource.
func (r *RxRing) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil && r.filled == 0 {
		return r.err
	}
	r.active = true
	return nil
}

// Stop implements ByteSource. Bytes received while stopped are dropped.
func (r *RxRing) Stop() {
	r.lock.Lock()
	r.active = false
	r.space.Broadcast()
	r.lock.Unlock()
}

// Peek implements ByteSource.
// A receive failure is reported once the bytes landed before it have
// been handed out.
func (r *RxRing) Peek(fn func(filled []byte, remaining int) error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.filled == 0 && r.err != nil {
		return r.err
	}
	r.peeked = r.filled
	return fn(r.buf[:r.filled], len(r.buf)-r.filled)
}

// Restart implements ByteSource.
// Bytes landed after the last Peek are kept at the region start.
func (r *RxRing) Restart() {
	r.lock.Lock()
	r.filled = copy(r.buf, r.buf[r.peeked:r.filled])
	r.peeked = 0
	r.space.Broadcast()
	r.lock.Unlock()
}

// Run implements Runnable.
func (r *RxRing) Run(ctx context.Context) error {
	err := fx.RunWithContextCancel(ctx, r.shutdown, r.receive)
	r.lock.Lock()
	if r.err == nil {
		r.err = ErrRxClosed
	}
	r.closed = true
	r.lock.Unlock()
	// wake the driver so it observes the failure.
	r.Wake.Raise()
	return err
}

func (r *RxRing) receive() error {
	chunk := make([]byte, len(r.buf))
	for {
		n, err := r.Reader.Read(chunk)
		if n > 0 {
			glog.V(5).Infof("rx % x", chunk[:n])
			r.land(chunk[:n])
		}
		if err != nil {
			r.lock.Lock()
			r.err = err
			r.lock.Unlock()
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (r *RxRing) land(p []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for len(p) > 0 && r.active && !r.closed {
		if r.filled == len(r.buf) {
			r.space.Wait()
			continue
		}
		n := copy(r.buf[r.filled:], p)
		r.filled += n
		p = p[n:]
		r.Wake.Raise()
	}
}

func (r *RxRing) shutdown() {
	r.lock.Lock()
	r.closed = true
	r.space.Broadcast()
	r.lock.Unlock()
	if closer, ok := r.Reader.(io.Closer); ok {
		closer.Close()
	}
}
