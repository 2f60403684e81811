package framework

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrMailboxClosed indicates the mailbox is closed. Recv returns it
	// only after all queued values are consumed.
	ErrMailboxClosed = errors.New("mailbox closed")
	// ErrMailboxEmpty is returned by TryRecv when nothing is queued.
	ErrMailboxEmpty = errors.New("mailbox empty")
)

// Mailbox is an unbounded FIFO queue with any number of senders and a
// single receiver. Send never blocks.
type Mailbox[T any] struct {
	lock   sync.Mutex
	items  itemList[T]
	closed bool

	wakeUpCh chan struct{}
}

type itemList[T any] struct {
	head *item[T]
	tail *item[T]
}

type item[T any] struct {
	val  T
	next *item[T]
}

func (l *itemList[T]) append(it *item[T]) {
	if l.head == nil {
		l.head = it
	} else {
		l.tail.next = it
	}
	l.tail = it
}

func (l *itemList[T]) pop() (*item[T], bool) {
	it := l.head
	if it == nil {
		return nil, false
	}
	l.head = it.next
	if l.head == nil {
		l.tail = nil
	}
	it.next = nil
	return it, true
}

// NewMailbox creates an empty Mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{wakeUpCh: make(chan struct{}, 1)}
}

// Send enqueues v.
func (m *Mailbox[T]) Send(v T) error {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return ErrMailboxClosed
	}
	m.items.append(&item[T]{val: v})
	m.lock.Unlock()
	m.wakeUp()
	return nil
}

// Close stops accepting new values. Queued values are still delivered.
func (m *Mailbox[T]) Close() {
	m.lock.Lock()
	m.closed = true
	m.lock.Unlock()
	m.wakeUp()
}

// Closed tells whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.closed
}

// TryRecv dequeues a value without blocking.
func (m *Mailbox[T]) TryRecv() (v T, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if it, ok := m.items.pop(); ok {
		return it.val, nil
	}
	if m.closed {
		return v, ErrMailboxClosed
	}
	return v, ErrMailboxEmpty
}

// Recv dequeues a value, blocking until one is available, the mailbox
// is closed or ctx is done.
func (m *Mailbox[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, err := m.TryRecv()
		if err != ErrMailboxEmpty {
			return v, err
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-m.wakeUpCh:
		}
	}
}

// Wait returns a channel which becomes readable after a Send or Close.
// It is meant for the single receiver selecting on other events,
// which drains with TryRecv after each wake-up.
func (m *Mailbox[T]) Wait() <-chan struct{} {
	return m.wakeUpCh
}

func (m *Mailbox[T]) wakeUp() {
	select {
	case m.wakeUpCh <- struct{}{}:
	default:
	}
}
