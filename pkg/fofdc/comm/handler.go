package comm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
)

// Handler bridges a PacketReadWriter and the mailboxes of a state machine.
// Received messages are posted to Inbound, messages taken from Outbound
// are transmitted.
type Handler struct {
	ReadWriter PacketReadWriter
	Role       fofdc.Role
	Inbound    *fx.Mailbox[fofdc.Message]
	Outbound   *fx.Mailbox[fofdc.Message]

	closing atomic.Bool
}

// NewHandler creates a Handler.
func NewHandler(rw PacketReadWriter, role fofdc.Role, inbound, outbound *fx.Mailbox[fofdc.Message]) *Handler {
	return &Handler{
		ReadWriter: rw,
		Role:       role,
		Inbound:    inbound,
		Outbound:   outbound,
	}
}

// Name implements Named.
func (h *Handler) Name() string {
	return "comm-" + h.Role.String()
}

// Run implements Runnable. It returns once Outbound is closed and drained,
// or a loop fails. The context is not watched: the owner of Outbound
// decides when transmission ends.
func (h *Handler) Run(context.Context) error {
	recvCh := make(chan error, 1)
	go func() { recvCh <- h.RecvLoop() }()
	sendErr := h.SendLoop()
	h.Close()
	recvErr := <-recvCh
	var errs fx.AggregatedError
	return errs.Add(recvErr, sendErr).Aggregate()
}

// RecvLoop reads packets and posts decoded messages to Inbound until the
// transport is closed or a packet can't be decoded. Inbound is closed on
// return.
func (h *Handler) RecvLoop() error {
	defer h.Inbound.Close()
	for {
		pkt, err := h.ReadWriter.ReadPacket()
		if err != nil {
			if h.closing.Load() || errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				glog.V(2).Infof("%s: receive loop stopped: %v", h.Role, err)
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		msg, err := fofdc.Unmarshal(pkt)
		if err != nil {
			glog.Errorf("%s: undecodable packet %q: %v", h.Role, pkt, err)
			return fmt.Errorf("receive: %w", err)
		}
		glog.V(2).Infof("%s: recv %s", h.Role, msg.Kind())
		if err = h.Inbound.Send(msg); err != nil {
			return nil
		}
	}
}

// SendLoop transmits messages from Outbound until it is closed and drained.
// Queuing a message the role never transmits is a programming error.
func (h *Handler) SendLoop() error {
	for {
		msg, err := h.Outbound.Recv(context.Background())
		if err != nil {
			return nil
		}
		if !msg.Kind().SentBy(h.Role) {
			panic(fmt.Sprintf("%s can't transmit %s", h.Role, msg.Kind()))
		}
		pkt, err := fofdc.Marshal(msg)
		if err != nil {
			return fmt.Errorf("send %s: %w", msg.Kind(), err)
		}
		if err = h.ReadWriter.WritePacket(pkt); err != nil {
			return fmt.Errorf("send %s: %w", msg.Kind(), err)
		}
		glog.V(2).Infof("%s: sent %s", h.Role, msg.Kind())
	}
}

// Close closes the transport, which stops RecvLoop.
func (h *Handler) Close() error {
	h.closing.Store(true)
	if closer, ok := h.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
