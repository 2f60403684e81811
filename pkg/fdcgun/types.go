package fdcgun

import "strconv"

// Type is the one byte tag identifying a message on the wire.
type Type byte

// Message type tags. 0x04 is reserved and must not be reused.
const (
	TypeComplianceResponse Type = 0x00
	TypeFireReport         Type = 0x01
	TypeStatusRequest      Type = 0x02
	TypeStatusReply        Type = 0x03
	TypeFireCommand        Type = 0x05
	TypeCheckFire          Type = 0x06
)

var typeNames = map[Type]string{
	TypeComplianceResponse: "ComplianceResponse",
	TypeFireReport:         "FireReport",
	TypeStatusRequest:      "StatusRequest",
	TypeStatusReply:        "StatusReply",
	TypeFireCommand:        "FireCommand",
	TypeCheckFire:          "CheckFire",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Type(0x" + strconv.FormatUint(uint64(t), 16) + ")"
}

// Ammunition is the kind of rounds.
type Ammunition byte

// Known ammunition. New kinds take new byte values.
const (
	HighExplosive Ammunition = 0x00
)

// Valid tells whether a is a known ammunition.
func (a Ammunition) Valid() bool {
	return a == HighExplosive
}

func (a Ammunition) String() string {
	switch a {
	case HighExplosive:
		return "HE"
	}
	return "Ammunition(" + strconv.Itoa(int(a)) + ")"
}

// Status is the operational status of a gun.
type Status byte

// Gun statuses.
const (
	NonOperational     Status = 0
	PartialOperational Status = 1
	Operational        Status = 2
)

// Valid tells whether s is a known status.
func (s Status) Valid() bool {
	return s <= Operational
}

func (s Status) String() string {
	switch s {
	case NonOperational:
		return "NonOperational"
	case PartialOperational:
		return "PartialOperational"
	case Operational:
		return "Operational"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Compliance is the answer of a gun to a command.
type Compliance byte

// Compliance answers, 0 is not used.
const (
	CANTCO Compliance = 1 // cannot comply
	WILLCO Compliance = 2 // will comply
	HAVECO Compliance = 3 // have complied
)

// Valid tells whether c is a known compliance.
func (c Compliance) Valid() bool {
	return c >= CANTCO && c <= HAVECO
}

func (c Compliance) String() string {
	switch c {
	case CANTCO:
		return "CANTCO"
	case WILLCO:
		return "WILLCO"
	case HAVECO:
		return "HAVECO"
	}
	return "Compliance(" + strconv.Itoa(int(c)) + ")"
}

// TargetLocation is where the gun is laid. Values are opaque units.
type TargetLocation struct {
	Range     uint32
	Direction uint32
}
