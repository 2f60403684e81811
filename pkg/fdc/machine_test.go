package fdc

import (
	"context"
	"net/netip"
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

func (e *testEnv) requireClosed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := e.out.Recv(ctx)
	require.Equal(t, fx.ErrMailboxClosed, err)
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

func testRequest() fofdc.RequestForFire {
	ammo := fofdc.HighExplosive
	return fofdc.RequestForFire{WarnOrder: fofdc.WarnOrder{
		Src:            "FO",
		Receiver:       "FDC",
		ResponseAddr:   netip.MustParseAddrPort("127.0.0.1:49152"),
		MissionType:    fofdc.FireForEffect,
		TargetLocation: fofdc.GridLocation(321, 654),
		Ammunition:     &ammo,
	}}
}

func TestRequestForFireWhileWaiting(t *testing.T) {
	e := newTestEnv(t, nil)
	e.transition(OnlineWaiting, "")

	req := testRequest()
	e.handle(req)
	require.Equal(t, fofdc.RequestForFireConfirm{WarnOrder: req.WarnOrder}, e.recv(t))
	require.Equal(t, OnlineFiring, e.State())

	e.handle(req)
	e.requireIdle(t)
	require.Equal(t, OnlineFiring, e.State())
	require.Equal(t, 1, e.recorder.count(telemetry.EventAnomaly))
}

func TestUnexpectedWhileWaiting(t *testing.T) {
	e := newTestEnv(t, nil)
	e.transition(OnlineWaiting, "")
	for _, msg := range []fofdc.Message{
		fofdc.ShotConfirm{},
		fofdc.Readback(fofdc.ReadbackRequestForFire),
		fofdc.BattleDamageAssessment{},
	} {
		e.handle(msg)
		e.requireIdle(t)
		require.Equal(t, OnlineWaiting, e.State())
	}
}

func TestFiringReadbacks(t *testing.T) {
	e := newTestEnv(t, nil)
	e.transition(OnlineWaiting, "")
	e.handle(testRequest())
	e.recv(t)

	testCases := []struct {
		in, out fofdc.Message
	}{
		{fofdc.ShotConfirm{}, fofdc.Readback(fofdc.ReadbackShot)},
		{fofdc.SplashConfirm{}, fofdc.Readback(fofdc.ReadbackSplash)},
		{fofdc.RoundsCompleteConfirm{}, fofdc.Readback(fofdc.ReadbackRoundsComplete)},
		{fofdc.BattleDamageAssessment{}, fofdc.BattleDamageAssessmentConfirm{}},
	}
	for _, tc := range testCases {
		e.handle(tc.in)
		require.Equal(t, tc.out, e.recv(t), "%s", tc.in.Kind())
		require.Equal(t, OnlineFiring, e.State())
	}

	e.handle(fofdc.Readback(fofdc.ReadbackShot))
	e.requireIdle(t)

	e.handle(fofdc.Readback(fofdc.ReadbackBattleDamageAssessment))
	e.requireIdle(t)
	require.Equal(t, OnlineWaiting, e.State())
}

func TestMtoReadbackMismatch(t *testing.T) {
	e := newTestEnv(t, nil)
	e.transition(OnlineWaiting, "")
	e.handle(testRequest())
	e.recv(t)
	e.handle(fofdc.Readback(fofdc.ReadbackRequestForFire))
	mto := e.recv(t).(fofdc.MessageToObserver)

	wrong := mto.Mto
	wrong.Rounds++
	e.handle(fofdc.MessageToObserverConfirm{Mto: wrong})
	require.Equal(t, mto, e.recv(t))
	e.requireIdle(t)
	require.Nil(t, e.seqDone)

	e.handle(fofdc.MessageToObserverConfirm{Mto: mto.Mto})
	require.Equal(t, fofdc.Readback(fofdc.ReadbackMessageToObserver), e.recv(t))
	require.NotNil(t, e.seqDone)
	seq := e.seqDone

	e.handle(fofdc.MessageToObserverConfirm{Mto: mto.Mto})
	require.Equal(t, fofdc.Readback(fofdc.ReadbackMessageToObserver), e.recv(t))
	require.Equal(t, seq, e.seqDone)

	e.abortSequence()
	<-seq
}

func TestMtoConfirmAfterSequenceFinished(t *testing.T) {
	e := newTestEnv(t, nil)
	e.transition(OnlineWaiting, "")
	e.handle(testRequest())
	e.recv(t)
	e.handle(fofdc.Readback(fofdc.ReadbackRequestForFire))
	mto := e.recv(t).(fofdc.MessageToObserver)

	finished := make(chan struct{})
	close(finished)
	e.seqDone, e.seqAbort = finished, make(chan struct{})

	e.handle(fofdc.MessageToObserverConfirm{Mto: mto.Mto})
	require.Equal(t, fofdc.Readback(fofdc.ReadbackMessageToObserver), e.recv(t))
	require.NotNil(t, e.seqDone)
	require.NotEqual(t, finished, e.seqDone)
	require.True(t, e.sequenceInFlight())

	seq := e.seqDone
	e.abortSequence()
	<-seq
	require.False(t, e.sequenceInFlight())
}

func TestFireMission(t *testing.T) {
	e := newTestEnv(t, nil)
	cancel, errCh := e.start()
	defer cancel()

	req := testRequest()
	e.in.Send(req)
	require.Equal(t, fofdc.RequestForFireConfirm{WarnOrder: req.WarnOrder}, e.recv(t))

	e.in.Send(fofdc.Readback(fofdc.ReadbackRequestForFire))
	msg := e.recv(t)
	require.Equal(t, fofdc.MessageToObserver{Mto: fofdc.Mto{
		Src:          "FDC",
		Receiver:     "FO",
		TargetNumber: fofdc.MustTargetNumber("AN2001"),
		Ammunition:   fofdc.HighExplosive,
		Rounds:       4,
	}}, msg)

	e.in.Send(fofdc.MessageToObserverConfirm{Mto: msg.(fofdc.MessageToObserver).Mto})
	require.Equal(t, fofdc.Readback(fofdc.ReadbackMessageToObserver), e.recv(t))

	e.clock.BlockUntil(1)
	e.clock.Advance(12 * time.Second)
	e.requireIdle(t)
	e.clock.Advance(time.Second)
	require.Equal(t, fofdc.Shot{}, e.recv(t))
	for i := 1; i < 4; i++ {
		e.clock.BlockUntil(1)
		e.clock.Advance(time.Second)
		require.Equal(t, fofdc.Shot{}, e.recv(t))
		e.in.Send(fofdc.ShotConfirm{})
		require.Equal(t, fofdc.Readback(fofdc.ReadbackShot), e.recv(t))
	}
	e.clock.BlockUntil(1)
	e.clock.Advance(13 * time.Second)
	require.Equal(t, fofdc.Splash{}, e.recv(t))
	e.clock.BlockUntil(1)
	e.clock.Advance(4 * time.Second)
	require.Equal(t, fofdc.RoundsComplete{}, e.recv(t))

	e.in.Send(fofdc.RoundsCompleteConfirm{})
	require.Equal(t, fofdc.Readback(fofdc.ReadbackRoundsComplete), e.recv(t))
	e.in.Send(fofdc.BattleDamageAssessment{})
	require.Equal(t, fofdc.BattleDamageAssessmentConfirm{}, e.recv(t))
	e.in.Send(fofdc.Readback(fofdc.ReadbackBattleDamageAssessment))

	// Waiting again: a new request is confirmed.
	e.in.Send(req)
	require.Equal(t, fofdc.RequestForFireConfirm{WarnOrder: req.WarnOrder}, e.recv(t))

	cancel()
	require.Equal(t, context.Canceled, waitErr(t, errCh))
	e.requireClosed(t)
}

func startFiring(t *testing.T, e *testEnv) {
	e.in.Send(testRequest())
	e.recv(t)
	e.in.Send(fofdc.Readback(fofdc.ReadbackRequestForFire))
	msg := e.recv(t)
	e.in.Send(fofdc.MessageToObserverConfirm{Mto: msg.(fofdc.MessageToObserver).Mto})
	require.Equal(t, fofdc.Readback(fofdc.ReadbackMessageToObserver), e.recv(t))
}

func TestShutdownDrainsFireSequence(t *testing.T) {
	e := newTestEnv(t, func(c *Config) { c.ShotCount = 1 })
	cancel, errCh := e.start()
	startFiring(t, e)

	cancel()
	e.clock.BlockUntil(2)
	e.clock.Advance(13 * time.Second)
	require.Equal(t, fofdc.Shot{}, e.recv(t))
	e.clock.BlockUntil(2)
	e.clock.Advance(13 * time.Second)
	require.Equal(t, fofdc.Splash{}, e.recv(t))
	e.clock.BlockUntil(2)
	e.clock.Advance(4 * time.Second)
	require.Equal(t, fofdc.RoundsComplete{}, e.recv(t))

	require.Equal(t, context.Canceled, waitErr(t, errCh))
	e.requireClosed(t)
}

func TestShutdownDrainTimeout(t *testing.T) {
	e := newTestEnv(t, func(c *Config) { c.DrainTimeout = 5 * time.Second })
	cancel, errCh := e.start()
	startFiring(t, e)

	cancel()
	e.clock.BlockUntil(2)
	e.clock.Advance(5 * time.Second)
	require.Equal(t, context.Canceled, waitErr(t, errCh))
	e.requireClosed(t)
}

func TestShutdownWhileIdle(t *testing.T) {
	e := newTestEnv(t, nil)
	cancel, errCh := e.start()
	cancel()
	require.Equal(t, context.Canceled, waitErr(t, errCh))
	e.requireClosed(t)
}

func TestInboundClosed(t *testing.T) {
	e := newTestEnv(t, nil)
	_, errCh := e.start()
	startFiring(t, e)
	e.in.Close()
	require.NoError(t, waitErr(t, errCh))
	e.requireClosed(t)
}

func TestConfigValidate(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Validate())

	conf.TargetNumber = "A1N200"
	require.Error(t, conf.Validate())

	conf = NewConfig()
	conf.ShotCount = 0
	require.Error(t, conf.Validate())

	conf = NewConfig()
	conf.SplashDelay = -time.Second
	require.Error(t, conf.Validate())
	_, err := conf.NewMachine(fx.NewMailbox[fofdc.Message](), fx.NewMailbox[fofdc.Message]())
	require.Error(t, err)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Online{Waiting}", OnlineWaiting.String())
	require.Equal(t, "Online{Firing}", OnlineFiring.String())
	require.Equal(t, "State(9)", State(9).String())
}
