package comm

import (
	"errors"
	"net"
	"syscall"

	"github.com/golang/glog"
)

// MaxDatagramSize is the receive buffer size, larger than any envelope.
const MaxDatagramSize = 24 * 1024

// UDPReadWriter implements PacketReadWriter over a connected UDP socket,
// one envelope per datagram.
type UDPReadWriter struct {
	conn *net.UDPConn
	buf  []byte
}

// DialUDP binds local and connects to peer.
func DialUDP(local, peer string) (*UDPReadWriter, error) {
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", peer)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, err
	}
	return &UDPReadWriter{conn: conn, buf: make([]byte, MaxDatagramSize)}, nil
}

// LocalAddr returns the bound address.
func (u *UDPReadWriter) LocalAddr() *net.UDPAddr {
	return u.conn.LocalAddr().(*net.UDPAddr)
}

// ReadPacket implements PacketReader.
// A refused connection only means the peer isn't listening yet.
func (u *UDPReadWriter) ReadPacket() ([]byte, error) {
	for {
		n, err := u.conn.Read(u.buf)
		if err != nil {
			if errors.Is(err, syscall.ECONNREFUSED) {
				glog.V(2).Infof("udp: peer %s not listening", u.conn.RemoteAddr())
				continue
			}
			return nil, err
		}
		pkt := make([]byte, n)
		copy(pkt, u.buf[:n])
		return pkt, nil
	}
}

// WritePacket implements PacketWriter. Datagrams to a peer not listening
// are dropped.
func (u *UDPReadWriter) WritePacket(pkt []byte) error {
	_, err := u.conn.Write(pkt)
	if errors.Is(err, syscall.ECONNREFUSED) {
		glog.Warningf("udp: peer %s not listening, datagram dropped", u.conn.RemoteAddr())
		return nil
	}
	return err
}

// Close implements io.Closer.
func (u *UDPReadWriter) Close() error {
	return u.conn.Close()
}
