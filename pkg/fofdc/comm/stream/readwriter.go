package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

// MaxPacketLen is the largest packet accepted.
const MaxPacketLen = 24 * 1024

// ReadWriter implements PacketReadWriter over a byte stream.
// Each packet is prefixed by 4-byte (big-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter

	writeLock sync.Mutex
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s}
}

// Dial connects to a listening peer over TCP.
func Dial(addr string) (*ReadWriter, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Accept listens on addr and returns the first connection. The listener is
// closed afterwards as a link has exactly one peer.
func Accept(addr string) (*ReadWriter, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p.ReadWriter, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketLen {
		return nil, fmt.Errorf("stream: packet of %d bytes exceeds %d", size, MaxPacketLen)
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.ReadWriter, pkt); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > MaxPacketLen {
		return fmt.Errorf("stream: packet of %d bytes exceeds %d", len(pkt), MaxPacketLen)
	}
	buf := make([]byte, 4, 4+len(pkt))
	binary.BigEndian.PutUint32(buf, uint32(len(pkt)))
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	_, err := p.Write(append(buf, pkt...))
	return err
}

// Close closes the underlying stream if it is an io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
