package fdcgun

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

const (
	// MaxFrameLen is the largest payload accepted in a frame.
	MaxFrameLen = 8192
	// HeaderLen is the size of length prefix and type tag.
	HeaderLen = 5

	lenFireReport  = 1 + 1 + 1 + 4 + 4 + 4
	lenFireCommand = 4 + 1 + 4 + 4
	lenRoundsEntry = 1 + 4
)

// AppendFrame appends the encoded frame of msg to dst.
func AppendFrame(dst []byte, msg Message) ([]byte, error) {
	payload, err := appendPayload(nil, msg)
	if err != nil {
		return dst, err
	}
	if uint64(len(payload)) > math.MaxUint32 || len(payload) > MaxFrameLen {
		return dst, fmt.Errorf("%w: %s payload is %d bytes", ErrOversizedFrame, msg.Type(), len(payload))
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, byte(msg.Type()))
	return append(dst, payload...), nil
}

// WriteFrame encodes msg and writes the frame with a single Write.
func WriteFrame(w io.Writer, msg Message) error {
	frame, err := AppendFrame(make([]byte, 0, HeaderLen+lenFireReport), msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// DecodeFrame decodes the first frame in src.
// It returns n == 0 and a nil Message when src doesn't hold a complete frame
// yet. Otherwise n is the number of bytes of the frame, consumed even when
// the payload is invalid. An oversized length is reported before the
// payload arrives and consumes nothing.
func DecodeFrame(src []byte) (msg Message, n int, err error) {
	if len(src) < 4 {
		return nil, 0, nil
	}
	length := binary.BigEndian.Uint32(src)
	if length > MaxFrameLen {
		return nil, 0, fmt.Errorf("%w: frame of %d bytes", ErrOversizedFrame, length)
	}
	n = HeaderLen + int(length)
	if len(src) < n {
		return nil, 0, nil
	}
	msg, err = decodePayload(Type(src[4]), src[HeaderLen:n])
	return msg, n, err
}

// FrameLen returns the full size of the frame starting at src, if the
// length prefix is available.
func FrameLen(src []byte) (int, bool) {
	if len(src) < 4 {
		return 0, false
	}
	return HeaderLen + int(binary.BigEndian.Uint32(src)), true
}

func appendTarget(b []byte, t TargetLocation) []byte {
	b = binary.BigEndian.AppendUint32(b, t.Range)
	return binary.BigEndian.AppendUint32(b, t.Direction)
}

func appendPayload(b []byte, msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case ComplianceResponse:
		b = append(b, byte(m.Compliance))
	case FireReport:
		b = append(b, m.Shot, m.TotalShots, byte(m.Ammunition))
		b = appendTarget(b, m.Target)
		b = binary.BigEndian.AppendUint32(b, m.TimeToTarget)
	case StatusRequest, CheckFire:
	case StatusReply:
		b = append(b, byte(m.Status))
		ammos := make([]Ammunition, 0, len(m.Rounds))
		for ammo := range m.Rounds {
			ammos = append(ammos, ammo)
		}
		sort.Slice(ammos, func(i, j int) bool { return ammos[i] < ammos[j] })
		for _, ammo := range ammos {
			b = append(b, byte(ammo))
			b = binary.BigEndian.AppendUint32(b, m.Rounds[ammo])
		}
	case FireCommand:
		b = binary.BigEndian.AppendUint32(b, m.Rounds)
		b = append(b, byte(m.Ammunition))
		b = appendTarget(b, m.Target)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidMessageType, msg)
	}
	return b, nil
}

type payloadReader struct {
	data []byte
	err  error
}

func (r *payloadReader) u8() byte {
	if r.err != nil {
		return 0
	}
	if len(r.data) < 1 {
		r.err = invalidData("truncated payload")
		return 0
	}
	v := r.data[0]
	r.data = r.data[1:]
	return v
}

func (r *payloadReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.data) < 4 {
		r.err = invalidData("truncated payload")
		return 0
	}
	v := binary.BigEndian.Uint32(r.data)
	r.data = r.data[4:]
	return v
}

func (r *payloadReader) target() TargetLocation {
	return TargetLocation{Range: r.u32(), Direction: r.u32()}
}

func (r *payloadReader) ammunition() Ammunition {
	a := Ammunition(r.u8())
	if r.err == nil && !a.Valid() {
		r.err = invalidData("unknown ammunition %d", a)
	}
	return a
}

func (r *payloadReader) done() error {
	if r.err == nil && len(r.data) != 0 {
		r.err = invalidData("%d trailing bytes", len(r.data))
	}
	return r.err
}

func decodePayload(t Type, payload []byte) (Message, error) {
	r := &payloadReader{data: payload}
	var msg Message
	switch t {
	case TypeComplianceResponse:
		c := Compliance(r.u8())
		if r.err == nil && !c.Valid() {
			r.err = invalidData("unknown compliance %d", c)
		}
		msg = ComplianceResponse{Compliance: c}
	case TypeFireReport:
		msg = FireReport{
			Shot:         r.u8(),
			TotalShots:   r.u8(),
			Ammunition:   r.ammunition(),
			Target:       r.target(),
			TimeToTarget: r.u32(),
		}
	case TypeStatusRequest:
		msg = StatusRequest{}
	case TypeStatusReply:
		reply := StatusReply{Status: Status(r.u8()), Rounds: make(map[Ammunition]uint32)}
		if r.err == nil && !reply.Status.Valid() {
			r.err = invalidData("unknown status %d", reply.Status)
		}
		if r.err == nil && len(r.data)%lenRoundsEntry != 0 {
			r.err = invalidData("rounds list of %d bytes", len(r.data))
		}
		for r.err == nil && len(r.data) > 0 {
			ammo, count := r.ammunition(), r.u32()
			if _, dup := reply.Rounds[ammo]; dup && r.err == nil {
				r.err = invalidData("duplicated ammunition %s", ammo)
			}
			reply.Rounds[ammo] = count
		}
		msg = reply
	case TypeFireCommand:
		msg = FireCommand{
			Rounds:     r.u32(),
			Ammunition: r.ammunition(),
			Target:     r.target(),
		}
	case TypeCheckFire:
		msg = CheckFire{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessageType, t)
	}
	if err := r.done(); err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	return msg, nil
}
