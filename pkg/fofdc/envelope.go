package fofdc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidEnvelope indicates the data is not an object with exactly
// one message key.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// UnknownKindError indicates an unknown message tag.
type UnknownKindError struct {
	Tag string
}

// Error implements error.
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown message kind: %q", e.Tag)
}

type decodeFunc func(json.RawMessage) (Message, error)

func decodeAs[T Message](raw json.RawMessage) (Message, error) {
	var msg T
	if isNull(raw) {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidValue)
	}
	if err := strictUnmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if v, ok := any(msg).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// decodeUnit decodes variants without fields, where null is accepted.
func decodeUnit[T Message](raw json.RawMessage) (Message, error) {
	var msg T
	if isNull(raw) {
		return msg, nil
	}
	return decodeAs[T](raw)
}

func decodeReadback(raw json.RawMessage) (Message, error) {
	var msg SolidReadback
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// messageDecoders is the registry of wire tags.
var messageDecoders = map[string]decodeFunc{
	KindRequestForFire.String():                decodeAs[RequestForFire],
	KindRequestForFireConfirm.String():         decodeAs[RequestForFireConfirm],
	KindMessageToObserver.String():             decodeAs[MessageToObserver],
	KindMessageToObserverConfirm.String():      decodeAs[MessageToObserverConfirm],
	KindShot.String():                          decodeUnit[Shot],
	KindShotConfirm.String():                   decodeUnit[ShotConfirm],
	KindSplash.String():                        decodeUnit[Splash],
	KindSplashConfirm.String():                 decodeUnit[SplashConfirm],
	KindRoundsComplete.String():                decodeUnit[RoundsComplete],
	KindRoundsCompleteConfirm.String():         decodeUnit[RoundsCompleteConfirm],
	KindBattleDamageAssessment.String():        decodeUnit[BattleDamageAssessment],
	KindBattleDamageAssessmentConfirm.String(): decodeUnit[BattleDamageAssessmentConfirm],
	KindSolidReadback.String():                 decodeReadback,
}

// Marshal encodes msg into its envelope.
func Marshal(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return json.Marshal(map[string]json.RawMessage{msg.Kind().String(): payload})
}

// Unmarshal decodes an envelope.
func Unmarshal(data []byte) (Message, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(env) != 1 {
		return nil, fmt.Errorf("%w: %d keys", ErrInvalidEnvelope, len(env))
	}
	for tag, raw := range env {
		decode, ok := messageDecoders[tag]
		if !ok {
			return nil, &UnknownKindError{Tag: tag}
		}
		msg, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		return msg, nil
	}
	return nil, ErrInvalidEnvelope
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
