// Package link opens the byte links to peripherals.
//
// Supported URLs:
//
//	serial:///dev/ttyUSB0?baud=9600
//	tcp://host:port
//	ws://host:port/path
package link

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
)

// ErrUnsupportedScheme indicates the link URL scheme is unknown.
var ErrUnsupportedScheme = errors.New("unsupported link scheme")

// Conn is an established byte link.
type Conn interface {
	io.ReadWriteCloser
}

// Listener accepts links from supervisors.
type Listener interface {
	Accept() (Conn, error)
	Close() error
	// URL returns the URL a supervisor opens to reach the listener.
	URL() string
}

// Open opens a link by URL.
func Open(linkURL string) (Conn, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		path, baud, err := serialParams(u)
		if err != nil {
			return nil, err
		}
		conn, err := OpenSerial(path, baud)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "tcp":
		return net.Dial("tcp", u.Host)
	case "ws", "wss":
		return OpenWebsocket(u)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// Listen listens for links by URL. Serial ports are opened rather than
// listened on and produce a single Conn.
func Listen(linkURL string) (Listener, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		path, baud, err := serialParams(u)
		if err != nil {
			return nil, err
		}
		conn, err := OpenSerial(path, baud)
		if err != nil {
			return nil, err
		}
		return newSingleListener(linkURL, conn), nil
	case "tcp":
		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return &tcpListener{Listener: ln}, nil
	case "ws":
		ln, err := ListenWebsocket(u)
		if err != nil {
			return nil, err
		}
		return ln, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

type tcpListener struct {
	net.Listener
}

func (l *tcpListener) Accept() (Conn, error) {
	return l.Listener.Accept()
}

func (l *tcpListener) URL() string {
	return "tcp://" + l.Addr().String()
}

// singleListener hands out one Conn, then blocks until closed.
type singleListener struct {
	url    string
	connCh chan Conn
	done   chan struct{}
}

func newSingleListener(linkURL string, conn Conn) *singleListener {
	l := &singleListener{
		url:    linkURL,
		connCh: make(chan Conn, 1),
		done:   make(chan struct{}),
	}
	l.connCh <- conn
	return l
}

func (l *singleListener) Accept() (Conn, error) {
	select {
	case conn := <-l.connCh:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *singleListener) Close() error {
	select {
	case <-l.done:
	default:
		close(l.done)
		select {
		case conn := <-l.connCh:
			return conn.Close()
		default:
		}
	}
	return nil
}

func (l *singleListener) URL() string {
	return l.url
}
