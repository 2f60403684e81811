// Package fdcgun implements the binary protocol between a Fire Direction
// Center and its guns.
package fdcgun

// Every message travels in a frame:
//
//   [4 bytes big-endian payload length][1 byte type tag][payload]
//
// The length counts the payload only and never exceeds MaxFrameLen.
// Multi-byte integers are big-endian. The protocol has no resync
// mechanism: any framing error is fatal to the connection.
//
// Producer: FDC (StatusRequest, FireCommand, CheckFire)
// Producer: Gun (StatusReply, ComplianceResponse, FireReport)
