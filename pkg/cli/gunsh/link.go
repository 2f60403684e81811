package gunsh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/TopGunSnake/example-simulators/pkg/fdcgun"
)

// Link is a connection to a gun.
type Link struct {
	Addr   string
	Client *fdcgun.Client

	cancel context.CancelFunc
	doneCh chan struct{}
	err    error
}

// Dial connects to the gun at addr. Fire reports are passed to onReport
// from a separate goroutine.
func Dial(addr string, onReport func(fdcgun.FireReport)) (*Link, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return NewLink(addr, conn, onReport), nil
}

// NewLink runs a Client over an established connection.
func NewLink(addr string, conn net.Conn, onReport func(fdcgun.FireReport)) *Link {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		Addr:   addr,
		Client: fdcgun.NewClient(fdcgun.NewConn(conn)),
		cancel: cancel,
		doneCh: make(chan struct{}),
	}
	go func() {
		l.err = l.Client.Run(ctx)
		close(l.doneCh)
	}()
	go func() {
		for {
			report, err := l.Client.Reports().Recv(context.Background())
			if err != nil {
				return
			}
			if onReport != nil {
				onReport(report)
			}
		}
	}()
	return l
}

// Call sends a request and waits for the reply up to timeout.
func (l *Link) Call(msg fdcgun.Message, timeout time.Duration) (fdcgun.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Client.Call(ctx, msg)
}

// Done is closed when the connection is gone.
func (l *Link) Done() <-chan struct{} {
	return l.doneCh
}

// Close disconnects and returns the error which ended the connection.
func (l *Link) Close() error {
	l.cancel()
	<-l.doneCh
	if errors.Is(l.err, context.Canceled) {
		return nil
	}
	return l.err
}

// ParseFireCommand parses ROUNDS RANGE DIRECTION.
func ParseFireCommand(args []string) (cmd fdcgun.FireCommand, err error) {
	if len(args) != 3 {
		return cmd, fmt.Errorf("ROUNDS RANGE DIRECTION required")
	}
	var vals [3]uint32
	for n, arg := range args {
		val, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return cmd, fmt.Errorf("invalid %q: %v", arg, err)
		}
		vals[n] = uint32(val)
	}
	cmd.Rounds = vals[0]
	cmd.Ammunition = fdcgun.HighExplosive
	cmd.Target = fdcgun.TargetLocation{Range: vals[1], Direction: vals[2]}
	return cmd, nil
}

// FormatMessage prints a message from a gun for display.
func FormatMessage(msg fdcgun.Message) string {
	switch m := msg.(type) {
	case fdcgun.StatusReply:
		s := m.Status.String()
		for _, ammo := range sortedAmmunition(m.Rounds) {
			s += fmt.Sprintf(" %s=%d", ammo, m.Rounds[ammo])
		}
		return s
	case fdcgun.ComplianceResponse:
		return m.Compliance.String()
	case fdcgun.FireReport:
		return fmt.Sprintf("shot %d/%d %s range %d direction %d, %ds to target",
			m.Shot, m.TotalShots, m.Ammunition, m.Target.Range, m.Target.Direction, m.TimeToTarget)
	}
	return msg.Type().String()
}

func sortedAmmunition(rounds map[fdcgun.Ammunition]uint32) []fdcgun.Ammunition {
	keys := make([]fdcgun.Ammunition, 0, len(rounds))
	for ammo := range rounds {
		keys = append(keys, ammo)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
