package fofdc

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidTargetNumber indicates a malformed target number.
var ErrInvalidTargetNumber = errors.New("invalid target number")

var targetNumberPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{4}$`)

// TargetNumber identifies a target, two capital letters followed by
// four digits. The zero value is not a valid target number.
type TargetNumber struct {
	value string
}

// NewTargetNumber validates s and creates a TargetNumber.
func NewTargetNumber(s string) (TargetNumber, error) {
	if !targetNumberPattern.MatchString(s) {
		return TargetNumber{}, fmt.Errorf("%w: %q", ErrInvalidTargetNumber, s)
	}
	return TargetNumber{value: s}, nil
}

// MustTargetNumber is NewTargetNumber panicking on error.
func MustTargetNumber(s string) TargetNumber {
	tn, err := NewTargetNumber(s)
	if err != nil {
		panic(err)
	}
	return tn
}

func (n TargetNumber) String() string {
	return n.value
}

// IsZero tells whether n is the zero value.
func (n TargetNumber) IsZero() bool {
	return n.value == ""
}

// MarshalText implements encoding.TextMarshaler.
func (n TargetNumber) MarshalText() ([]byte, error) {
	if n.IsZero() {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTargetNumber)
	}
	return []byte(n.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *TargetNumber) UnmarshalText(text []byte) error {
	tn, err := NewTargetNumber(string(text))
	if err != nil {
		return err
	}
	*n = tn
	return nil
}
