// Package fofdc provides the Forward Observer to Fire Direction Center
// protocol and all message schemas.
package fofdc

// Every message is a JSON object with a single key, the snake_case name
// of the message kind, holding the payload:
//
//   {"request_for_fire": {"src": "FO", ...}}
//   {"shot": {}}
//   {"solid_readback": "shot"}
//
// One message per datagram.
//
// Producer: FO (RequestForFire, MessageToObserverConfirm, ShotConfirm,
// SplashConfirm, RoundsCompleteConfirm, BattleDamageAssessment)
// Producer: FDC (RequestForFireConfirm, MessageToObserver, Shot, Splash,
// RoundsComplete, BattleDamageAssessmentConfirm)
// Both: SolidReadback
