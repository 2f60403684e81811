package fdcgun

import "bytes"

// Decoder accumulates received bytes and decodes frames once they
// are complete.
type Decoder struct {
	buf bytes.Buffer
}

// Write implements io.Writer, appending received bytes.
func (d *Decoder) Write(p []byte) (int, error) {
	return d.buf.Write(p)
}

// Buffered returns the number of bytes not decoded yet.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// Decode returns the next message, or nil without error when more bytes
// are needed. When the frame length is known but the frame is
// incomplete, the buffer is grown by the missing amount.
func (d *Decoder) Decode() (Message, error) {
	msg, n, err := DecodeFrame(d.buf.Bytes())
	if n > 0 {
		d.buf.Next(n)
		return msg, err
	}
	if err != nil {
		return nil, err
	}
	if frameLen, ok := FrameLen(d.buf.Bytes()); ok && frameLen > d.buf.Len() {
		d.buf.Grow(frameLen - d.buf.Len())
	}
	return nil, nil
}
