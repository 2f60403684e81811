package fo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry"
)

type testRecorder struct {
	lock   sync.Mutex
	events []*telemetry.Event
}

func (r *testRecorder) Record(ev *telemetry.Event) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, ev)
}

func (r *testRecorder) count(typ telemetry.EventType) (n int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return
}

type testEnv struct {
	*Machine
	clock    *fx.ManualClock
	recorder *testRecorder
	in, out  *fx.Mailbox[fofdc.Message]
}

func newTestEnv(t *testing.T, configure func(*Config)) *testEnv {
	conf := NewConfig()
	conf.ResponseAddr = "127.0.0.1:49152"
	if configure != nil {
		configure(conf)
	}
	in, out := fx.NewMailbox[fofdc.Message](), fx.NewMailbox[fofdc.Message]()
	m, err := conf.NewMachine(in, out)
	require.NoError(t, err)
	e := &testEnv{
		Machine:  m,
		clock:    fx.NewManualClock(time.Unix(1600000000, 0)),
		recorder: &testRecorder{},
		in:       in,
		out:      out,
	}
	m.Clock, m.Recorder = e.clock, e.recorder
	return e
}

func (e *testEnv) start() (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()
	return cancel, errCh
}

func (e *testEnv) recv(t *testing.T) fofdc.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := e.out.Recv(ctx)
	require.NoError(t, err)
	return msg
}

func (e *testEnv) requireIdle(t *testing.T) {
	_, err := e.out.TryRecv()
	require.Equal(t, fx.ErrMailboxEmpty, err)
}

func waitErr(t *testing.T, errCh <-chan error) error {
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "machine did not stop")
	}
	return nil
}

func testMto() fofdc.Mto {
	return fofdc.Mto{
		Src:          "FDC",
		Receiver:     "FO",
		TargetNumber: fofdc.MustTargetNumber("AN2001"),
		Ammunition:   fofdc.HighExplosive,
		Rounds:       4,
	}
}

func TestDefaultWarnOrder(t *testing.T) {
	e := newTestEnv(t, nil)
	order, err := e.Config.WarnOrder()
	require.NoError(t, err)
	require.Equal(t, "FO", order.Src)
	require.Equal(t, "FDC", order.Receiver)
	require.Equal(t, "127.0.0.1:49152", order.ResponseAddr.String())
	require.Equal(t, fofdc.FireForEffect, order.MissionType)
	require.True(t, order.TargetLocation.Equal(fofdc.GridLocation(321, 654)))
	require.Equal(t, fofdc.TargetDescription{}, order.TargetDescription)
	require.False(t, order.DangerClose)
	require.NotNil(t, order.Ammunition)
	require.Equal(t, fofdc.HighExplosive, *order.Ammunition)
	require.Nil(t, order.MethodOfFire)
}

func TestFullCycle(t *testing.T) {
	e := newTestEnv(t, nil)
	e.standby("")
	require.Equal(t, Standby, e.State())
	e.request()
	req := e.recv(t).(fofdc.RequestForFire)
	require.Equal(t, Requesting, e.State())

	steps := []struct {
		in    fofdc.Message
		out   fofdc.Message
		state State
	}{
		{fofdc.RequestForFireConfirm{WarnOrder: req.WarnOrder}, fofdc.Readback(fofdc.ReadbackRequestForFire), Requesting},
		{fofdc.MessageToObserver{Mto: testMto()}, fofdc.MessageToObserverConfirm{Mto: testMto()}, Requesting},
		{fofdc.Readback(fofdc.ReadbackMessageToObserver), nil, Observing},
		{fofdc.Shot{}, fofdc.ShotConfirm{}, Observing},
		{fofdc.Readback(fofdc.ReadbackShot), nil, Observing},
		{fofdc.Shot{}, fofdc.ShotConfirm{}, Observing},
		{fofdc.Shot{}, fofdc.ShotConfirm{}, Observing},
		{fofdc.Shot{}, fofdc.ShotConfirm{}, Observing},
		{fofdc.Splash{}, fofdc.SplashConfirm{}, Observing},
		{fofdc.Readback(fofdc.ReadbackSplash), nil, Observing},
		{fofdc.RoundsComplete{}, fofdc.RoundsCompleteConfirm{}, Observing},
		{fofdc.Readback(fofdc.ReadbackRoundsComplete), fofdc.BattleDamageAssessment{}, Reporting},
		{fofdc.BattleDamageAssessmentConfirm{}, fofdc.Readback(fofdc.ReadbackBattleDamageAssessment), Standby},
	}
	for _, step := range steps {
		e.handle(step.in)
		if step.out != nil {
			require.Equal(t, step.out, e.recv(t), "%s", step.in.Kind())
		}
		e.requireIdle(t)
		require.Equal(t, step.state, e.State(), "%s", step.in.Kind())
	}
	require.Equal(t, 1, e.Missions())
	require.Zero(t, e.recorder.count(telemetry.EventAnomaly))
}

func TestRequestReadbackMismatch(t *testing.T) {
	e := newTestEnv(t, nil)
	e.standby("")
	e.request()
	req := e.recv(t).(fofdc.RequestForFire)

	wrong := req.WarnOrder
	wrong.DangerClose = !wrong.DangerClose
	e.handle(fofdc.RequestForFireConfirm{WarnOrder: wrong})
	require.Equal(t, req, e.recv(t))
	e.requireIdle(t)
	require.Equal(t, Requesting, e.State())
	require.Equal(t, 1, e.recorder.count(telemetry.EventAnomaly))
}

func TestUnexpectedMessages(t *testing.T) {
	e := newTestEnv(t, nil)
	e.standby("")

	for _, msg := range []fofdc.Message{
		fofdc.Shot{},
		fofdc.MessageToObserver{Mto: testMto()},
		fofdc.Readback(fofdc.ReadbackRoundsComplete),
		fofdc.BattleDamageAssessmentConfirm{},
	} {
		e.handle(msg)
		e.requireIdle(t)
		require.Equal(t, Standby, e.State())
	}

	e.request()
	e.recv(t)
	for _, msg := range []fofdc.Message{
		fofdc.Splash{},
		fofdc.Readback(fofdc.ReadbackShot),
		fofdc.BattleDamageAssessmentConfirm{},
	} {
		e.handle(msg)
		e.requireIdle(t)
		require.Equal(t, Requesting, e.State())
	}
	require.Equal(t, 7, e.recorder.count(telemetry.EventAnomaly))
}

func TestObserverOnlyKinds(t *testing.T) {
	e := newTestEnv(t, nil)
	e.standby("")
	e.request()
	e.recv(t)

	for _, msg := range []fofdc.Message{
		fofdc.RequestForFire{},
		fofdc.MessageToObserverConfirm{Mto: testMto()},
		fofdc.ShotConfirm{},
		fofdc.SplashConfirm{},
		fofdc.RoundsCompleteConfirm{},
		fofdc.BattleDamageAssessment{},
	} {
		e.handle(msg)
		e.requireIdle(t)
		require.Equal(t, Requesting, e.State())
	}
	require.Equal(t, 6, e.recorder.count(telemetry.EventAnomaly))
}

func TestRequestDelayAndRetry(t *testing.T) {
	e := newTestEnv(t, nil)
	cancel, errCh := e.start()

	e.clock.BlockUntil(1)
	e.requireIdle(t)
	e.clock.Advance(5 * time.Second)
	req := e.recv(t).(fofdc.RequestForFire)

	for i := 0; i < 2; i++ {
		e.clock.BlockUntil(1)
		e.clock.Advance(2 * time.Second)
		require.Equal(t, req, e.recv(t))
	}

	e.in.Send(fofdc.RequestForFireConfirm{WarnOrder: req.WarnOrder})
	require.Equal(t, fofdc.Readback(fofdc.ReadbackRequestForFire), e.recv(t))
	// The retry timer is dropped once confirmed.
	e.clock.Advance(2 * time.Second)
	e.in.Send(fofdc.MessageToObserver{Mto: testMto()})
	require.Equal(t, fofdc.MessageToObserverConfirm{Mto: testMto()}, e.recv(t))
	e.requireIdle(t)

	cancel()
	require.Equal(t, context.Canceled, waitErr(t, errCh))
	_, err := e.out.TryRecv()
	require.Equal(t, fx.ErrMailboxClosed, err)
}

func TestRetryDisabled(t *testing.T) {
	e := newTestEnv(t, func(c *Config) {
		c.RequestDelay = 0
		c.RetryInterval = 0
	})
	e.standby("")
	e.request()
	e.recv(t)
	require.Nil(t, e.retryTimer)
}

func TestMaxMissions(t *testing.T) {
	e := newTestEnv(t, func(c *Config) { c.MaxMissions = 1 })
	e.standby("")
	require.NotNil(t, e.requestTimer)
	e.missions = 1
	e.standby("")
	require.Nil(t, e.requestTimer)
}

func TestInboundClosed(t *testing.T) {
	e := newTestEnv(t, nil)
	_, errCh := e.start()
	e.in.Close()
	require.NoError(t, waitErr(t, errCh))
	_, err := e.out.TryRecv()
	require.Equal(t, fx.ErrMailboxClosed, err)
}

func TestConfig(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Validate())

	conf.ResponseAddr = "localhost"
	require.Error(t, conf.Validate())

	conf = NewConfig()
	conf.MaxMissions = -1
	require.Error(t, conf.Validate())

	var grid fofdc.Grid
	v := gridValue{&grid}
	require.NoError(t, v.Set("12, 34"))
	require.Equal(t, fofdc.Grid{Lateral: 12, Longitudinal: 34}, grid)
	require.Equal(t, "12,34", v.String())
	require.Error(t, v.Set("12"))
	require.Error(t, v.Set("a,b"))
}
