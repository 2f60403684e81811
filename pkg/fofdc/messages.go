package fofdc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies a message variant.
type Kind int

// Message kinds.
const (
	KindRequestForFire Kind = iota
	KindRequestForFireConfirm
	KindMessageToObserver
	KindMessageToObserverConfirm
	KindShot
	KindShotConfirm
	KindSplash
	KindSplashConfirm
	KindRoundsComplete
	KindRoundsCompleteConfirm
	KindBattleDamageAssessment
	KindBattleDamageAssessmentConfirm
	KindSolidReadback
)

var kindNames = [...]string{
	KindRequestForFire:                "request_for_fire",
	KindRequestForFireConfirm:         "request_for_fire_confirm",
	KindMessageToObserver:             "message_to_observer",
	KindMessageToObserverConfirm:      "message_to_observer_confirm",
	KindShot:                          "shot",
	KindShotConfirm:                   "shot_confirm",
	KindSplash:                        "splash",
	KindSplashConfirm:                 "splash_confirm",
	KindRoundsComplete:                "rounds_complete",
	KindRoundsCompleteConfirm:         "rounds_complete_confirm",
	KindBattleDamageAssessment:        "battle_damage_assessment",
	KindBattleDamageAssessmentConfirm: "battle_damage_assessment_confirm",
	KindSolidReadback:                 "solid_readback",
}

// String returns the wire tag of the kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Role is a party of the FO-FDC link.
type Role int

// Roles.
const (
	RoleFO Role = iota
	RoleFDC
)

func (r Role) String() string {
	switch r {
	case RoleFO:
		return "FO"
	case RoleFDC:
		return "FDC"
	}
	return "role(" + strconv.Itoa(int(r)) + ")"
}

// SentBy tells whether role r transmits messages of kind k.
func (k Kind) SentBy(r Role) bool {
	switch k {
	case KindSolidReadback:
		return r == RoleFO || r == RoleFDC
	case KindRequestForFire, KindMessageToObserverConfirm, KindShotConfirm,
		KindSplashConfirm, KindRoundsCompleteConfirm, KindBattleDamageAssessment:
		return r == RoleFO
	case KindRequestForFireConfirm, KindMessageToObserver, KindShot,
		KindSplash, KindRoundsComplete, KindBattleDamageAssessmentConfirm:
		return r == RoleFDC
	}
	return false
}

// Message is implemented by all FO-FDC messages.
type Message interface {
	Kind() Kind
}

// RequestForFire opens a mission.
type RequestForFire struct{ WarnOrder }

// RequestForFireConfirm echoes the WarnOrder for readback.
type RequestForFireConfirm struct{ WarnOrder }

// MessageToObserver tells the observer how the mission will be fired.
type MessageToObserver struct{ Mto }

// MessageToObserverConfirm echoes the Mto for readback.
type MessageToObserverConfirm struct{ Mto }

// Shot reports rounds have been fired.
type Shot struct{}

// ShotConfirm acknowledges Shot.
type ShotConfirm struct{}

// Splash reports rounds are about to impact.
type Splash struct{}

// SplashConfirm acknowledges Splash.
type SplashConfirm struct{}

// RoundsComplete reports the mission's rounds are all fired.
type RoundsComplete struct{}

// RoundsCompleteConfirm acknowledges RoundsComplete.
type RoundsCompleteConfirm struct{}

// BattleDamageAssessment reports the effect on target.
type BattleDamageAssessment struct{}

// BattleDamageAssessmentConfirm acknowledges BattleDamageAssessment.
type BattleDamageAssessmentConfirm struct{}

// SolidReadback closes a confirm exchange.
type SolidReadback struct {
	Of ReadbackKind
}

// Kind implementations.

func (RequestForFire) Kind() Kind                { return KindRequestForFire }
func (RequestForFireConfirm) Kind() Kind         { return KindRequestForFireConfirm }
func (MessageToObserver) Kind() Kind             { return KindMessageToObserver }
func (MessageToObserverConfirm) Kind() Kind      { return KindMessageToObserverConfirm }
func (Shot) Kind() Kind                          { return KindShot }
func (ShotConfirm) Kind() Kind                   { return KindShotConfirm }
func (Splash) Kind() Kind                        { return KindSplash }
func (SplashConfirm) Kind() Kind                 { return KindSplashConfirm }
func (RoundsComplete) Kind() Kind                { return KindRoundsComplete }
func (RoundsCompleteConfirm) Kind() Kind         { return KindRoundsCompleteConfirm }
func (BattleDamageAssessment) Kind() Kind        { return KindBattleDamageAssessment }
func (BattleDamageAssessmentConfirm) Kind() Kind { return KindBattleDamageAssessmentConfirm }
func (SolidReadback) Kind() Kind                 { return KindSolidReadback }

// MarshalJSON encodes the readback as the bare kind name.
func (r SolidReadback) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Of)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *SolidReadback) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return fmt.Errorf("%w: readback without kind", ErrInvalidValue)
	}
	return json.Unmarshal(data, &r.Of)
}

// Readback returns a SolidReadback for kind.
func Readback(kind ReadbackKind) SolidReadback {
	return SolidReadback{Of: kind}
}
