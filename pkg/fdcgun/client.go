package fdcgun

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
)

// Result is the result of a request using Do.
type Result struct {
	Err   error
	Reply Message
}

// Request represents a pending request waiting for reply.
type Request struct {
	msg      Message
	resultCh chan Result
	next     *Request
}

// Message returns the request message.
func (r *Request) Message() Message {
	return r.msg
}

// ResultChan returns the chan to retrieve result.
func (r *Request) ResultChan() <-chan Result {
	return r.resultCh
}

type requestQueue struct {
	head *Request
	tail *Request
}

func (q *requestQueue) push(r *Request) {
	if q.head == nil {
		q.head = r
	} else {
		q.tail.next = r
	}
	q.tail = r
}

func (q *requestQueue) pop() *Request {
	r := q.head
	if r != nil {
		if q.head = r.next; q.head == nil {
			q.tail = nil
		}
		r.next = nil
	}
	return r
}

// remove unlinks r, reporting whether it was queued.
func (q *requestQueue) remove(r *Request) bool {
	var prev *Request
	for cur := q.head; cur != nil; prev, cur = cur, cur.next {
		if cur != r {
			continue
		}
		if prev == nil {
			q.head = cur.next
		} else {
			prev.next = cur.next
		}
		if q.tail == cur {
			q.tail = prev
		}
		cur.next = nil
		return true
	}
	return false
}

// Client is the FDC side of a gun connection. Replies carry no
// correlation id, so each one completes the oldest request expecting
// that reply type. FireReports are delivered through Reports.
type Client struct {
	conn    *Conn
	reports *fx.Mailbox[FireReport]
	pending map[Type]*requestQueue
	closed  bool
	lock    sync.Mutex

	// sendLock keeps queue order and wire order the same.
	sendLock sync.Mutex
}

// NewClient creates client and wraps the conn.
func NewClient(conn *Conn) *Client {
	c := &Client{
		conn:    conn,
		reports: fx.NewMailbox[FireReport](),
		pending: make(map[Type]*requestQueue),
	}
	c.conn.Handler = c
	return c
}

// Conn gets wrapped Conn.
func (c *Client) Conn() *Conn {
	return c.conn
}

// Reports retrieves the FireReports received. It is closed when Run returns.
func (c *Client) Reports() *fx.Mailbox[FireReport] {
	return c.reports
}

// Do sends a request and returns a Request for result.
func (c *Client) Do(msg Message) *Request {
	req := &Request{msg: msg, resultCh: make(chan Result, 1)}
	replyType, ok := ReplyType(msg.Type())
	if !ok {
		req.resultCh <- Result{Err: ErrNotRequest}
		return req
	}

	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		req.resultCh <- Result{Err: ErrClosed}
		return req
	}
	q := c.pending[replyType]
	if q == nil {
		q = &requestQueue{}
		c.pending[replyType] = q
	}
	q.push(req)
	c.lock.Unlock()

	if err := c.conn.Send(msg); err != nil {
		c.lock.Lock()
		queued := q.remove(req)
		c.lock.Unlock()
		// Run fails requests it drained itself.
		if queued {
			req.resultCh <- Result{Err: err}
		}
	}
	return req
}

// Call sends a request and waits for the reply.
func (c *Client) Call(ctx context.Context, msg Message) (Message, error) {
	select {
	case result := <-c.Do(msg).ResultChan():
		return result.Reply, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleMessage implements MessageHandler.
func (c *Client) HandleMessage(ctx context.Context, msg Message) {
	if report, ok := msg.(FireReport); ok {
		c.reports.Send(report)
		return
	}
	c.lock.Lock()
	var req *Request
	if q := c.pending[msg.Type()]; q != nil {
		req = q.pop()
	}
	c.lock.Unlock()
	if req == nil {
		glog.Warningf("fdcgun: unsolicited %s", msg.Type())
		return
	}
	req.resultCh <- Result{Reply: msg}
}

// Run wraps Conn.Run to implement Runnable. Pending requests fail with
// ErrClosed once the connection is gone.
func (c *Client) Run(ctx context.Context) error {
	err := c.conn.Run(ctx)
	c.lock.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[Type]*requestQueue)
	c.lock.Unlock()
	for _, q := range pending {
		for req := q.pop(); req != nil; req = q.pop() {
			req.resultCh <- Result{Err: ErrClosed}
		}
	}
	c.reports.Close()
	return err
}
