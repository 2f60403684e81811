package fdcgun

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
)

// MessageHandler is called when a message is received.
type MessageHandler interface {
	HandleMessage(context.Context, Message)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(context.Context, Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// Conn sends and receives framed messages over a byte stream.
type Conn struct {
	ReadWriter io.ReadWriter
	Handler    MessageHandler
	ReadSize   int

	lock    sync.Mutex
	decoder Decoder
}

// NewConn creates a Conn.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{ReadWriter: rw, ReadSize: 4096}
}

// Send encodes and writes a message. It is safe for concurrent use.
func (c *Conn) Send(msg Message) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return WriteFrame(c.ReadWriter, msg)
}

// Run reads and dispatches messages until the stream ends, a framing error
// occurs or ctx is done. The ReadWriter is closed on return if it is an
// io.Closer.
func (c *Conn) Run(ctx context.Context) error {
	fn := func() error { return c.readLoop(ctx) }
	if closer, ok := c.ReadWriter.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, fn)
	}
	return fx.RunWithContextCancel(ctx, nil, fn)
}

func (c *Conn) readLoop(ctx context.Context) error {
	size := c.ReadSize
	if size <= 0 {
		size = 4096
	}
	buf := make([]byte, size)
	for {
		n, err := c.ReadWriter.Read(buf)
		if n > 0 {
			c.decoder.Write(buf[:n])
			if derr := c.dispatch(ctx); derr != nil {
				glog.Errorf("fdcgun: drop connection: %v", derr)
				return derr
			}
		}
		if err == io.EOF {
			if c.decoder.Buffered() > 0 {
				return invalidData("stream ended inside a frame")
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Conn) dispatch(ctx context.Context) error {
	for {
		msg, err := c.decoder.Decode()
		if err != nil || msg == nil {
			return err
		}
		glog.V(2).Infof("fdcgun: recv %s", msg.Type())
		if h := c.Handler; h != nil {
			h.HandleMessage(ctx, msg)
		}
	}
}
