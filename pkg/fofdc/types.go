package fofdc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
)

// ErrInvalidValue indicates a field value which can't be decoded.
var ErrInvalidValue = errors.New("invalid value")

// enumText maps enum values to their wire names.
type enumText[T ~int] struct {
	kind  string
	names map[T]string
}

func (e enumText[T]) marshal(v T) ([]byte, error) {
	if name, ok := e.names[v]; ok {
		return []byte(name), nil
	}
	return nil, fmt.Errorf("%w: %s %d", ErrInvalidValue, e.kind, int(v))
}

func (e enumText[T]) unmarshal(text []byte, v *T) error {
	for val, name := range e.names {
		if name == string(text) {
			*v = val
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q", ErrInvalidValue, e.kind, text)
}

func (e enumText[T]) name(v T) string {
	if name, ok := e.names[v]; ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", e.kind, int(v))
}

// Ammunition is the kind of rounds requested.
type Ammunition int

// Known ammunition.
const (
	HighExplosive Ammunition = iota
)

var ammunitionText = enumText[Ammunition]{kind: "ammunition", names: map[Ammunition]string{
	HighExplosive: "high_explosive",
}}

func (a Ammunition) String() string { return ammunitionText.name(a) }

// MarshalText implements encoding.TextMarshaler.
func (a Ammunition) MarshalText() ([]byte, error) { return ammunitionText.marshal(a) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Ammunition) UnmarshalText(text []byte) error { return ammunitionText.unmarshal(text, a) }

// MissionType is the type of a fire mission.
type MissionType int

// Mission types.
const (
	// AdjustFire walks rounds onto the target through adjustments.
	AdjustFire MissionType = iota
	// FireForEffect fires the full volley without adjustment.
	FireForEffect
)

var missionTypeText = enumText[MissionType]{kind: "mission type", names: map[MissionType]string{
	AdjustFire:    "adjust_fire",
	FireForEffect: "fire_for_effect",
}}

func (t MissionType) String() string { return missionTypeText.name(t) }

// MarshalText implements encoding.TextMarshaler.
func (t MissionType) MarshalText() ([]byte, error) { return missionTypeText.marshal(t) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *MissionType) UnmarshalText(text []byte) error { return missionTypeText.unmarshal(text, t) }

// Grid locates a target by grid coordinates.
type Grid struct {
	Lateral      uint32 `json:"lateral"`
	Longitudinal uint32 `json:"longitudinal"`
}

// Polar locates a target by direction (mils) and distance (meters)
// from the observer.
type Polar struct {
	Direction uint32 `json:"direction"`
	Distance  uint32 `json:"distance"`
}

// TargetLocation holds exactly one of Grid and Polar.
type TargetLocation struct {
	Grid  *Grid
	Polar *Polar
}

// GridLocation creates a grid TargetLocation.
func GridLocation(lateral, longitudinal uint32) TargetLocation {
	return TargetLocation{Grid: &Grid{Lateral: lateral, Longitudinal: longitudinal}}
}

// PolarLocation creates a polar TargetLocation.
func PolarLocation(direction, distance uint32) TargetLocation {
	return TargetLocation{Polar: &Polar{Direction: direction, Distance: distance}}
}

type targetLocationJSON struct {
	Grid  *Grid  `json:"grid,omitempty"`
	Polar *Polar `json:"polar,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (l TargetLocation) MarshalJSON() ([]byte, error) {
	if (l.Grid == nil) == (l.Polar == nil) {
		return nil, fmt.Errorf("%w: target location needs exactly one of grid and polar", ErrInvalidValue)
	}
	return json.Marshal(targetLocationJSON{Grid: l.Grid, Polar: l.Polar})
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *TargetLocation) UnmarshalJSON(data []byte) error {
	var v targetLocationJSON
	if err := strictUnmarshal(data, &v); err != nil {
		return err
	}
	if (v.Grid == nil) == (v.Polar == nil) {
		return fmt.Errorf("%w: target location needs exactly one of grid and polar", ErrInvalidValue)
	}
	l.Grid, l.Polar = v.Grid, v.Polar
	return nil
}

// Equal compares the locations by value.
func (l TargetLocation) Equal(o TargetLocation) bool {
	return equalPtr(l.Grid, o.Grid) && equalPtr(l.Polar, o.Polar)
}

func (l TargetLocation) String() string {
	switch {
	case l.Grid != nil:
		return fmt.Sprintf("grid %d %d", l.Grid.Lateral, l.Grid.Longitudinal)
	case l.Polar != nil:
		return fmt.Sprintf("polar dir %d dist %d", l.Polar.Direction, l.Polar.Distance)
	}
	return "none"
}

// TargetDescription describes the target for humans. Any field may be empty.
type TargetDescription struct {
	TargetType string `json:"target_type"`
	Activity   string `json:"activity"`
	Numbers    string `json:"numbers"`
	Protection string `json:"protection"`
}

// MethodOfFire is either AtMyCommand or a time on target.
type MethodOfFire struct {
	timeOnTarget bool
	minutes      uint32
}

// AtMyCommand holds fire until the observer commands it.
func AtMyCommand() MethodOfFire {
	return MethodOfFire{}
}

// TimeOnTarget requests impact at minutes past the hour.
func TimeOnTarget(minutes uint32) MethodOfFire {
	return MethodOfFire{timeOnTarget: true, minutes: minutes}
}

// TimeOnTarget returns the requested minutes past the hour, if any.
func (m MethodOfFire) TimeOnTarget() (uint32, bool) {
	return m.minutes, m.timeOnTarget
}

func (m MethodOfFire) String() string {
	if m.timeOnTarget {
		return fmt.Sprintf("time on target %02d", m.minutes)
	}
	return "at my command"
}

// MarshalJSON implements json.Marshaler.
func (m MethodOfFire) MarshalJSON() ([]byte, error) {
	if m.timeOnTarget {
		return json.Marshal(map[string]uint32{"time_on_target": m.minutes})
	}
	return []byte(`"at_my_command"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MethodOfFire) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name != "at_my_command" {
			return fmt.Errorf("%w: method of fire %q", ErrInvalidValue, name)
		}
		*m = AtMyCommand()
		return nil
	}
	var tot struct {
		Minutes *uint32 `json:"time_on_target"`
	}
	if err := strictUnmarshal(data, &tot); err != nil {
		return err
	}
	if tot.Minutes == nil {
		return fmt.Errorf("%w: method of fire %s", ErrInvalidValue, data)
	}
	*m = TimeOnTarget(*tot.Minutes)
	return nil
}

// WarnOrder is the body of a Request for Fire.
type WarnOrder struct {
	// Src is the callsign of the sender.
	Src string `json:"src"`
	// Receiver is the callsign of the intended receiver.
	Receiver string `json:"receiver"`
	// ResponseAddr is where the FDC sends all traffic for the observer.
	ResponseAddr      netip.AddrPort    `json:"response_addr"`
	MissionType       MissionType       `json:"mission_type"`
	TargetLocation    TargetLocation    `json:"target_location"`
	TargetDescription TargetDescription `json:"target_description"`
	DangerClose       bool              `json:"danger_close"`
	Ammunition        *Ammunition       `json:"ammunition"`
	MethodOfFire      *MethodOfFire     `json:"method_of_fire"`
}

// Validate checks the fields JSON can leave unset.
func (w WarnOrder) Validate() error {
	if (w.TargetLocation.Grid == nil) == (w.TargetLocation.Polar == nil) {
		return fmt.Errorf("%w: target location needs exactly one of grid and polar", ErrInvalidValue)
	}
	return nil
}

// Equal compares two WarnOrders by value.
func (w WarnOrder) Equal(o WarnOrder) bool {
	return w.Src == o.Src &&
		w.Receiver == o.Receiver &&
		w.ResponseAddr == o.ResponseAddr &&
		w.MissionType == o.MissionType &&
		w.TargetLocation.Equal(o.TargetLocation) &&
		w.TargetDescription == o.TargetDescription &&
		w.DangerClose == o.DangerClose &&
		equalPtr(w.Ammunition, o.Ammunition) &&
		equalPtr(w.MethodOfFire, o.MethodOfFire)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Mto is the Message to Observer, the FDC's plan for the mission.
type Mto struct {
	Src          string       `json:"src"`
	Receiver     string       `json:"receiver"`
	TargetNumber TargetNumber `json:"target_number"`
	Ammunition   Ammunition   `json:"ammunition"`
	Rounds       uint32       `json:"rounds"`
}

// Validate checks the fields JSON can leave unset.
func (m Mto) Validate() error {
	if m.TargetNumber.IsZero() {
		return fmt.Errorf("%w: missing target number", ErrInvalidTargetNumber)
	}
	return nil
}

// ReadbackKind names the message a SolidReadback acknowledges.
type ReadbackKind int

// Readback kinds.
const (
	ReadbackShot ReadbackKind = iota
	ReadbackSplash
	ReadbackRoundsComplete
	ReadbackRequestForFire
	ReadbackBattleDamageAssessment
	ReadbackMessageToObserver
)

var readbackKindText = enumText[ReadbackKind]{kind: "readback", names: map[ReadbackKind]string{
	ReadbackShot:                   "shot",
	ReadbackSplash:                 "splash",
	ReadbackRoundsComplete:         "rounds_complete",
	ReadbackRequestForFire:         "request_for_fire",
	ReadbackBattleDamageAssessment: "battle_damage_assessment",
	ReadbackMessageToObserver:      "message_to_observer",
}}

func (k ReadbackKind) String() string { return readbackKindText.name(k) }

// MarshalText implements encoding.TextMarshaler.
func (k ReadbackKind) MarshalText() ([]byte, error) { return readbackKindText.marshal(k) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ReadbackKind) UnmarshalText(text []byte) error { return readbackKindText.unmarshal(text, k) }

// strictUnmarshal decodes a JSON object rejecting unknown fields.
func strictUnmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidValue)
	}
	return nil
}
