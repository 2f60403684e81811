package fdcgun

import (
	"errors"
	"fmt"
)

var (
	// ErrOversizedFrame indicates a frame payload exceeds MaxFrameLen.
	ErrOversizedFrame = errors.New("fdcgun: oversized frame")
	// ErrInvalidMessageType indicates an unknown type tag.
	ErrInvalidMessageType = errors.New("fdcgun: invalid message type")
	// ErrInvalidData indicates a payload which is truncated, too long or
	// carries out-of-range values.
	ErrInvalidData = errors.New("fdcgun: invalid data")
	// ErrNotRequest indicates the message is not a request the FDC sends.
	ErrNotRequest = errors.New("fdcgun: not a request")
	// ErrClosed indicates the connection is closed before a reply arrives.
	ErrClosed = errors.New("fdcgun: connection closed")
)

func invalidData(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidData}, args...)...)
}
