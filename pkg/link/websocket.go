package link

import (
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// OpenWebsocket dials a websocket link. Bytes are carried in binary frames.
func OpenWebsocket(u *url.URL) (Conn, error) {
	origin := &url.URL{Scheme: "http", Host: u.Host}
	if u.Scheme == "wss" {
		origin.Scheme = "https"
	}
	conn, err := websocket.Dial(u.String(), "", origin.String())
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// WebsocketListener accepts websocket links on an HTTP path.
type WebsocketListener struct {
	ln     net.Listener
	server *http.Server
	path   string
	connCh chan *serverConn
	done   chan struct{}
	once   sync.Once
}

// ListenWebsocket serves websocket links on u.Host and u.Path.
func ListenWebsocket(u *url.URL) (*WebsocketListener, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	l := &WebsocketListener{
		ln:     ln,
		path:   u.Path,
		connCh: make(chan *serverConn),
		done:   make(chan struct{}),
	}
	if l.path == "" {
		l.path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(l.path, websocket.Handler(l.serve))
	l.server = &http.Server{Handler: mux}
	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("websocket listener %s: %v", ln.Addr(), err)
		}
	}()
	return l, nil
}

// the handler must not return before the link is closed, as
// websocket.Handler closes the connection on return.
func (l *WebsocketListener) serve(ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	conn := &serverConn{Conn: ws, closed: make(chan struct{})}
	select {
	case l.connCh <- conn:
	case <-l.done:
		return
	}
	select {
	case <-conn.closed:
	case <-l.done:
	}
}

// Accept implements Listener.
func (l *WebsocketListener) Accept() (Conn, error) {
	select {
	case conn := <-l.connCh:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// Close implements Listener.
func (l *WebsocketListener) Close() (err error) {
	l.once.Do(func() {
		close(l.done)
		err = l.server.Close()
	})
	return
}

// URL implements Listener.
func (l *WebsocketListener) URL() string {
	return "ws://" + l.ln.Addr().String() + l.path
}

type serverConn struct {
	*websocket.Conn
	closed chan struct{}
	once   sync.Once
}

func (c *serverConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { close(c.closed) })
	return err
}
