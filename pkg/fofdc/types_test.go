package fofdc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWarnOrderEqual(t *testing.T) {
	a, b := testWarnOrder(), testWarnOrder()
	require.True(t, a.Equal(b))

	b.TargetLocation = GridLocation(321, 655)
	require.False(t, a.Equal(b))

	b = testWarnOrder()
	b.TargetLocation = PolarLocation(321, 654)
	require.False(t, a.Equal(b))

	b = testWarnOrder()
	b.Ammunition = nil
	require.False(t, a.Equal(b))

	b = testWarnOrder()
	mof := AtMyCommand()
	b.MethodOfFire = &mof
	require.False(t, a.Equal(b))

	a.MethodOfFire, b.MethodOfFire = nil, nil
	require.True(t, a.Equal(b))
}

func TestEnumText(t *testing.T) {
	require.Equal(t, "fire_for_effect", FireForEffect.String())
	require.Equal(t, "mission type(9)", MissionType(9).String())
	require.Equal(t, "readback(-1)", ReadbackKind(-1).String())

	_, err := MissionType(9).MarshalText()
	require.True(t, errors.Is(err, ErrInvalidValue))
	require.EqualError(t, err, "invalid value: mission type 9")

	var a Ammunition
	require.NoError(t, a.UnmarshalText([]byte("high_explosive")))
	require.Equal(t, HighExplosive, a)
	err = a.UnmarshalText([]byte("smoke"))
	require.True(t, errors.Is(err, ErrInvalidValue))
}
