// Package comm moves FO-FDC messages between a transport and the
// mailboxes of a protocol state machine.
package comm

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
// Each packet carries exactly one message envelope.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}
