package supervisor

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/config"
	"github.com/robotalks/thermo.go/pkg/driver"
	"github.com/robotalks/thermo.go/pkg/framing"
	"github.com/robotalks/thermo.go/pkg/hal"
	"github.com/robotalks/thermo.go/pkg/link"
	"github.com/robotalks/thermo.go/pkg/wire"
)

// Link is an opened peripheral link with its protocol engine.
type Link struct {
	URL    string
	Conn   link.Conn
	Ring   *hal.RxRing
	Engine *driver.Engine
}

// Dial opens the link at url and sets up the engine from conf.
func Dial(name, url string, replies *wire.Table, conf *config.Config) (*Link, error) {
	conn, err := link.Open(url)
	if err != nil {
		return nil, err
	}
	glog.Infof("%s: link %s opened", name, url)
	l := &Link{URL: url, Conn: conn}
	wake := hal.NewSignal()
	l.Ring = hal.NewRxRing(conn, conf.RxRingSize, wake)
	l.Engine = driver.NewEngine(name, replies, hal.NewSink(conn), l.Ring, wake)
	l.Engine.Buffer = framing.New(conf.FramingCapacity)
	l.Engine.Timeout = conf.Timeout
	l.Engine.Policy = conf.Policy()
	return l, nil
}

// Name implements Named.
func (l *Link) Name() string {
	return l.Engine.Name + ".rx"
}

// Run implements Runnable by receiving until ctx is done or the link
// fails. The connection is closed on return.
func (l *Link) Run(ctx context.Context) error {
	return l.Ring.Run(ctx)
}

// Stats implements telemetry.LinkSource.
func (l *Link) Stats() driver.Stats {
	return l.Engine.Stats()
}

// Close closes the connection.
func (l *Link) Close() error {
	return l.Conn.Close()
}
