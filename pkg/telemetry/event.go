// Package telemetry describes what a node reports about its protocol activity.
package telemetry

import (
	"strconv"

	"github.com/golang/protobuf/proto"
)

// EventType classifies an Event.
type EventType int32

// Event types.
const (
	EventUnknown EventType = iota
	EventTransition
	EventReceived
	EventSent
	EventAnomaly
)

var eventTypeNames = map[EventType]string{
	EventUnknown:    "unknown",
	EventTransition: "transition",
	EventReceived:   "received",
	EventSent:       "sent",
	EventAnomaly:    "anomaly",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "EventType(" + strconv.Itoa(int(t)) + ")"
}

// Event is a protocol activity record of a node.
type Event struct {
	Node     string    `protobuf:"bytes,1,opt,name=node,proto3" json:"node,omitempty"`
	Role     string    `protobuf:"bytes,2,opt,name=role,proto3" json:"role,omitempty"`
	Type     EventType `protobuf:"varint,3,opt,name=type,proto3" json:"type,omitempty"`
	Message  string    `protobuf:"bytes,4,opt,name=message,proto3" json:"message,omitempty"`
	From     string    `protobuf:"bytes,5,opt,name=from,proto3" json:"from,omitempty"`
	To       string    `protobuf:"bytes,6,opt,name=to,proto3" json:"to,omitempty"`
	Detail   string    `protobuf:"bytes,7,opt,name=detail,proto3" json:"detail,omitempty"`
	UnixNano int64     `protobuf:"varint,8,opt,name=unix_nano,json=unixNano,proto3" json:"unix_nano,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Event) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Event) Reset() { *m = Event{} }

// String implements proto.Message.
func (m *Event) String() string { return proto.CompactTextString(m) }

// Encode serializes the event.
func (m *Event) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeEvent deserializes an event.
func DecodeEvent(data []byte) (*Event, error) {
	var ev Event
	if err := proto.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// NodeInfo is the retained description of a node.
type NodeInfo struct {
	Node      string `json:"node"`
	Role      string `json:"role"`
	Callsign  string `json:"callsign"`
	Transport string `json:"transport"`
	LocalAddr string `json:"local_addr"`
	PeerAddr  string `json:"peer_addr"`
}

// Recorder consumes events. Record must not block.
type Recorder interface {
	Record(*Event)
}

// RecorderFunc is the func form of Recorder.
type RecorderFunc func(*Event)

// Record implements Recorder.
func (f RecorderFunc) Record(ev *Event) {
	f(ev)
}

// Nop discards all events.
var Nop Recorder = RecorderFunc(func(*Event) {})
