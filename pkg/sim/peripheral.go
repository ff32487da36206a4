// Package sim simulates the sensor and pump peripherals on top of a
// thermal plant, for running the supervisor without hardware.
package sim

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/framing"
	"github.com/robotalks/thermo.go/pkg/link"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// Handler produces the reply to a command. A nil reply sends nothing.
type Handler interface {
	Handle(wire.Message) wire.Message
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(wire.Message) wire.Message

// Handle implements Handler.
func (f HandlerFunc) Handle(msg wire.Message) wire.Message {
	return f(msg)
}

// Peripheral serves the command side of a link.
type Peripheral struct {
	Name     string
	Commands *wire.Table
	Handler  Handler
}

// Serve answers commands received on conn until ctx is done or the
// link fails. Undecodable bytes are skipped one at a time.
func (p *Peripheral) Serve(ctx context.Context, conn io.ReadWriteCloser) error {
	return fx.RunWithContextCloser(ctx, conn, func() error {
		buf := framing.New(framing.DefaultCapacity)
		chunk := make([]byte, 64)
		for {
			n, err := conn.Read(chunk)
			if n > 0 {
				glog.V(4).Infof("%s: rx % x", p.Name, chunk[:n])
				if e := buf.Ingest(chunk[:n]); e != nil {
					glog.Warningf("%s: %v, reset", p.Name, e)
					buf.Reset()
				}
				if e := p.process(buf, conn); e != nil {
					return e
				}
			}
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		}
	})
}

// ServeListener serves every link accepted from ln.
func (p *Peripheral) ServeListener(ctx context.Context, ln link.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			glog.Infof("%s: link accepted", p.Name)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := p.Serve(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
					glog.Warningf("%s: link closed: %v", p.Name, err)
				}
			}()
		}
	})
}

// Endpoint serves a Peripheral on a link URL.
type Endpoint struct {
	Peripheral *Peripheral
	URL        string
}

// Name implements Named.
func (e *Endpoint) Name() string {
	return e.Peripheral.Name
}

// Run implements Runnable.
func (e *Endpoint) Run(ctx context.Context) error {
	ln, err := link.Listen(e.URL)
	if err != nil {
		return err
	}
	glog.Infof("%s: serving on %s", e.Name(), ln.URL())
	return e.Peripheral.ServeListener(ctx, ln)
}

func (p *Peripheral) process(buf *framing.Buffer, w io.Writer) error {
	for {
		c := buf.Cursor()
		msg, err := p.Commands.Decode(c)
		if err == wire.ErrNeedMoreBytes {
			return nil
		}
		if err != nil {
			glog.Warningf("%s: %v", p.Name, err)
			buf.Skip(1)
			continue
		}
		buf.Flush(buf.Capture(c))
		reply := p.Handler.Handle(msg)
		if reply == nil {
			glog.V(3).Infof("%s: %#v unanswered", p.Name, msg)
			continue
		}
		glog.V(3).Infof("%s: %#v -> %#v", p.Name, msg, reply)
		if _, err := w.Write(wire.Encode(reply)); err != nil {
			return err
		}
	}
}
