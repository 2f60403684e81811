package websocket

import (
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Path is the HTTP path serving the link.
const Path = "/link"

// ReadWriter implements PacketReadWriter.
// Each packet is one binary WebSocket message.
type ReadWriter struct {
	conn     *websocket.Conn
	doneCh   chan struct{}
	doneOnce sync.Once
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return &ReadWriter{conn: conn, doneCh: make(chan struct{})}
}

// Dial connects to a peer serving the link at url, e.g. ws://host:port/link.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.conn, &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send(p.conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	p.doneOnce.Do(func() { close(p.doneCh) })
	return p.conn.Close()
}

// Listener serves the link over HTTP and hands out connected peers.
type Listener struct {
	ln        net.Listener
	server    *http.Server
	connCh    chan *ReadWriter
	doneCh    chan struct{}
	closeOnce sync.Once
}

// Listen starts serving the link on addr.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{ln: ln, connCh: make(chan *ReadWriter), doneCh: make(chan struct{})}
	mux := http.NewServeMux()
	mux.Handle(Path, websocket.Handler(l.serve))
	l.server = &http.Server{Handler: mux}
	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("websocket: serve: %v", err)
		}
	}()
	return l, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// serve hands the connection over and keeps it open until the
// ReadWriter is closed, as the server closes it when this returns.
// Peers nobody accepts are dropped once the Listener is closed.
func (l *Listener) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	rw := New(conn)
	select {
	case l.connCh <- rw:
	case <-l.doneCh:
		glog.V(1).Infof("websocket: drop %s, listener closed", conn.Request().RemoteAddr)
		return
	}
	<-rw.doneCh
}

// Accept waits for the next peer. It fails with net.ErrClosed once the
// Listener is closed.
func (l *Listener) Accept() (*ReadWriter, error) {
	select {
	case rw := <-l.connCh:
		return rw, nil
	case <-l.doneCh:
		return nil, net.ErrClosed
	}
}

// Close stops accepting peers. Accepted peers stay connected.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() { close(l.doneCh) })
	return l.server.Close()
}
