package fdcgun

// Message is implemented by all FDC-Gun messages.
type Message interface {
	Type() Type
}

// StatusRequest asks a gun for its status.
type StatusRequest struct{}

// StatusReply reports the gun status and rounds on hand.
type StatusReply struct {
	Status Status
	Rounds map[Ammunition]uint32
}

// FireReport reports a fired shot.
type FireReport struct {
	Shot         uint8
	TotalShots   uint8
	Ammunition   Ammunition
	Target       TargetLocation
	TimeToTarget uint32
}

// FireCommand orders a gun to fire.
type FireCommand struct {
	Rounds     uint32
	Ammunition Ammunition
	Target     TargetLocation
}

// CheckFire orders a gun to cease fire.
type CheckFire struct{}

// ComplianceResponse answers FireCommand and CheckFire.
type ComplianceResponse struct {
	Compliance Compliance
}

// Type implements Message.
func (StatusRequest) Type() Type { return TypeStatusRequest }

// Type implements Message.
func (StatusReply) Type() Type { return TypeStatusReply }

// Type implements Message.
func (FireReport) Type() Type { return TypeFireReport }

// Type implements Message.
func (FireCommand) Type() Type { return TypeFireCommand }

// Type implements Message.
func (CheckFire) Type() Type { return TypeCheckFire }

// Type implements Message.
func (ComplianceResponse) Type() Type { return TypeComplianceResponse }

// NewStatusReply creates a StatusReply, never with a nil Rounds map.
func NewStatusReply(status Status, rounds map[Ammunition]uint32) StatusReply {
	r := StatusReply{Status: status, Rounds: make(map[Ammunition]uint32, len(rounds))}
	for ammo, count := range rounds {
		r.Rounds[ammo] = count
	}
	return r
}

// ReplyType returns the type of the reply expected for a request.
func ReplyType(t Type) (Type, bool) {
	switch t {
	case TypeStatusRequest:
		return TypeStatusReply, true
	case TypeFireCommand, TypeCheckFire:
		return TypeComplianceResponse, true
	}
	return 0, false
}
