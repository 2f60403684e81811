package gunsh

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TopGunSnake/example-simulators/pkg/fdcgun"
)

func startGun(t *testing.T) (string, <-chan fdcgun.Message) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	received := make(chan fdcgun.Message, 16)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		gun := fdcgun.NewConn(conn)
		gun.Handler = fdcgun.HandleMessageFunc(func(ctx context.Context, msg fdcgun.Message) {
			received <- msg
			switch m := msg.(type) {
			case fdcgun.StatusRequest:
				gun.Send(fdcgun.NewStatusReply(fdcgun.Operational, map[fdcgun.Ammunition]uint32{fdcgun.HighExplosive: 7}))
			case fdcgun.FireCommand:
				gun.Send(fdcgun.ComplianceResponse{Compliance: fdcgun.WILLCO})
				gun.Send(fdcgun.FireReport{Shot: 1, TotalShots: 1, Ammunition: m.Ammunition, Target: m.Target, TimeToTarget: 13})
			case fdcgun.CheckFire:
				gun.Send(fdcgun.ComplianceResponse{Compliance: fdcgun.HAVECO})
			}
		})
		gun.Run(context.Background())
	}()
	return ln.Addr().String(), received
}

func TestLink(t *testing.T) {
	addr, received := startGun(t)
	reports := make(chan fdcgun.FireReport, 1)
	link, err := Dial(addr, func(r fdcgun.FireReport) { reports <- r })
	require.NoError(t, err)

	reply, err := link.Call(fdcgun.StatusRequest{}, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, "Operational HE=7", FormatMessage(reply))
	require.Equal(t, fdcgun.StatusRequest{}, <-received)

	cmd, err := ParseFireCommand([]string{"1", "1200", "3200"})
	require.NoError(t, err)
	reply, err = link.Call(cmd, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, fdcgun.ComplianceResponse{Compliance: fdcgun.WILLCO}, reply)
	select {
	case report := <-reports:
		require.Equal(t, "shot 1/1 HE range 1200 direction 3200, 13s to target", FormatMessage(report))
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no fire report")
	}

	reply, err = link.Call(fdcgun.CheckFire{}, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, "HAVECO", FormatMessage(reply))

	require.NoError(t, link.Close())
	_, err = link.Call(fdcgun.StatusRequest{}, time.Second)
	require.Error(t, err)
}

func TestParseFireCommand(t *testing.T) {
	cmd, err := ParseFireCommand([]string{"4", "5000", "1600"})
	require.NoError(t, err)
	require.Equal(t, fdcgun.FireCommand{
		Rounds:     4,
		Ammunition: fdcgun.HighExplosive,
		Target:     fdcgun.TargetLocation{Range: 5000, Direction: 1600},
	}, cmd)

	_, err = ParseFireCommand([]string{"4", "5000"})
	require.Error(t, err)
	_, err = ParseFireCommand([]string{"4", "-1", "1600"})
	require.Error(t, err)
}
