// Package driver implements the request/response protocol engine and the
// sensor and pump drivers built on it.
package driver

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/framing"
	"github.com/robotalks/thermo.go/pkg/hal"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// DefaultTimeout is the default deadline of an exchange.
const DefaultTimeout = 100 * time.Millisecond

// Engine drives request/response exchanges with one peripheral.
// There is at most one outstanding request; an Engine must be used by a
// single task.
type Engine struct {
	Name    string
	Replies *wire.Table
	Sink    hal.ByteSink
	Source  hal.ByteSource
	Wake    *hal.Signal
	Buffer  *framing.Buffer
	Timeout time.Duration
	Policy  DecodePolicy

	state     atomic.Int32
	exchanges atomic.Uint64
	failures  atomic.Uint64
}

// Stats counts exchanges.
type Stats struct {
	State     State
	Exchanges uint64
	Failures  uint64
	Buffered  int
}

// NewEngine creates an Engine with default timeout and buffer.
func NewEngine(name string, replies *wire.Table, sink hal.ByteSink, source hal.ByteSource, wake *hal.Signal) *Engine {
	return &Engine{
		Name:    name,
		Replies: replies,
		Sink:    sink,
		Source:  source,
		Wake:    wake,
		Buffer:  framing.New(framing.DefaultCapacity),
		Timeout: DefaultTimeout,
	}
}

// State returns the current state. It's safe to call from any goroutine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Stats returns counters. Buffered is only accurate from the engine task.
func (e *Engine) Stats() Stats {
	return Stats{
		State:     e.State(),
		Exchanges: e.exchanges.Load(),
		Failures:  e.failures.Load(),
		Buffered:  e.Buffer.Len(),
	}
}

// Exchange sends a command and waits for one reply.
// The whole exchange is bounded by Timeout; on timeout no reply is
// delivered and nothing is consumed from the framing buffer.
func (e *Engine) Exchange(ctx context.Context, cmd wire.Message) (wire.Message, error) {
	e.exchanges.Add(1)
	var reply wire.Message
	err := hal.TimeoutAfter(ctx, e.Timeout, func(ctx context.Context) (err error) {
		if err = e.writeCommand(cmd); err == nil {
			reply, err = e.readReply(ctx)
		}
		return
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.setState(Idle)
			return nil, ctxErr
		}
		if e.State() != FrameInvalid {
			e.setState(Idle)
		}
		return nil, e.fail(KindOf(err), err)
	}
	e.setState(Idle)
	return reply, nil
}

func (e *Engine) fail(kind Kind, err error) error {
	e.failures.Add(1)
	var driverErr *Error
	if errors.As(err, &driverErr) {
		return err
	}
	return &Error{Peripheral: e.Name, Kind: kind, Err: err}
}

func (e *Engine) setState(s State) {
	if prev := State(e.state.Swap(int32(s))); prev != s {
		glog.V(5).Infof("%s: %s -> %s", e.Name, prev, s)
	}
}

func (e *Engine) writeCommand(cmd wire.Message) error {
	// reception must be active before the reply can land.
	if err := e.Source.Start(); err != nil {
		return err
	}
	frame := wire.Encode(cmd)
	glog.V(4).Infof("%s: tx % x", e.Name, frame)
	if _, err := e.Sink.Write(frame); err != nil {
		return err
	}
	return e.Sink.Flush()
}

func (e *Engine) readReply(ctx context.Context) (wire.Message, error) {
	for {
		e.setState(AwaitingData)
		if err := e.Wake.Wait(ctx); err != nil {
			return nil, err
		}
		if err := e.ingest(); err != nil {
			return nil, err
		}
		e.setState(Parsing)
		msg, err := e.parse()
		switch err {
		case nil:
			e.setState(FrameReady)
			glog.V(4).Infof("%s: rx %#v", e.Name, msg)
			return msg, nil
		case wire.ErrNeedMoreBytes:
			e.setState(Incomplete)
			continue
		}
		e.setState(FrameInvalid)
		return nil, err
	}
}

func (e *Engine) ingest() error {
	err := e.Source.Peek(func(filled []byte, remaining int) error {
		if len(filled) == 0 {
			return nil
		}
		glog.V(5).Infof("%s: ingest % x, %d remaining", e.Name, filled, remaining)
		return e.Buffer.Ingest(filled)
	})
	if err != nil {
		return err
	}
	e.Source.Restart()
	return nil
}

func (e *Engine) parse() (wire.Message, error) {
	for {
		c := e.Buffer.Cursor()
		msg, err := e.Replies.Decode(c)
		if err == nil {
			e.Buffer.Flush(e.Buffer.Capture(c))
			return msg, nil
		}
		if err == wire.ErrNeedMoreBytes || e.Policy != PolicySkipByte {
			return nil, err
		}
		glog.Warningf("%s: %v, dropping one byte", e.Name, err)
		e.Buffer.Skip(1)
	}
}

// cycle runs op and a delay of period together and returns when both
// are done, so a cycle never takes less than period. A failing op
// returns immediately.
func cycle(ctx context.Context, period time.Duration, op func(context.Context) error) error {
	floor := time.NewTimer(period)
	defer floor.Stop()
	if err := op(ctx); err != nil {
		return err
	}
	select {
	case <-floor.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
