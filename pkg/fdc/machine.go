// Package fdc implements the Fire Direction Center side of a fire mission.
package fdc

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry"
)

// Machine is the FDC protocol state machine. It consumes Inbound and
// produces Outbound, which is closed when Run returns.
type Machine struct {
	Config   Config
	Clock    fx.Clock
	Recorder telemetry.Recorder
	Inbound  *fx.Mailbox[fofdc.Message]
	Outbound *fx.Mailbox[fofdc.Message]

	state State
	mto   fofdc.Mto

	// non-nil while a fire sequence is in flight.
	seqDone  chan struct{}
	seqAbort chan struct{}
}

// NewMachine creates a Machine using the config.
func (c *Config) NewMachine(inbound, outbound *fx.Mailbox[fofdc.Message]) (*Machine, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("fdc config: %w", err)
	}
	mto, _ := c.Mto()
	return &Machine{
		Config:   *c,
		Clock:    fx.SystemClock,
		Recorder: telemetry.Nop,
		Inbound:  inbound,
		Outbound: outbound,
		mto:      mto,
	}, nil
}

// Name implements Named.
func (m *Machine) Name() string {
	return "fdc"
}

// State returns the current state. It must not be called while Run is active.
func (m *Machine) State() State {
	return m.state
}

// Run implements Runnable. It returns when Inbound is closed, or after ctx
// is done and the fire sequence in flight, if any, has finished or
// exceeded DrainTimeout.
func (m *Machine) Run(ctx context.Context) error {
	defer m.Outbound.Close()
	m.transition(OnlineWaiting, "")
	done := ctx.Done()
	var drainTimer <-chan time.Time
	for {
		for {
			msg, err := m.Inbound.TryRecv()
			if err == fx.ErrMailboxEmpty {
				break
			}
			if err != nil {
				glog.Info("FDC: link closed")
				m.abortSequence()
				return nil
			}
			m.handle(msg)
		}
		select {
		case <-m.Inbound.Wait():
		case <-m.seqDone:
			m.seqDone, m.seqAbort = nil, nil
			glog.Info("FDC: fire sequence finished")
		case <-done:
			done = nil
			if m.seqDone != nil {
				glog.Infof("FDC: waiting up to %v for the fire sequence", m.Config.DrainTimeout)
				drainTimer = m.Clock.After(m.Config.DrainTimeout)
			}
		case <-drainTimer:
			glog.Warning("FDC: fire sequence abandoned")
			m.abortSequence()
			return ctx.Err()
		}
		if done == nil && m.seqDone == nil {
			return ctx.Err()
		}
	}
}

func (m *Machine) handle(msg fofdc.Message) {
	glog.V(2).Infof("FDC: %s @ %s", msg.Kind(), m.state)
	m.record(telemetry.EventReceived, msg.Kind().String(), "")
	switch m.state {
	case OnlineWaiting:
		m.handleWaiting(msg)
	case OnlineFiring:
		m.handleFiring(msg)
	default:
		m.unexpected(msg)
	}
}

func (m *Machine) handleWaiting(msg fofdc.Message) {
	switch msg := msg.(type) {
	case fofdc.RequestForFire:
		glog.Infof("FDC: request for fire from %s, %s at %s",
			msg.Src, msg.MissionType, msg.TargetLocation)
		m.send(fofdc.RequestForFireConfirm{WarnOrder: msg.WarnOrder})
		m.transition(OnlineFiring, msg.Kind().String())
	default:
		m.unexpected(msg)
	}
}

func (m *Machine) handleFiring(msg fofdc.Message) {
	switch msg := msg.(type) {
	case fofdc.SolidReadback:
		switch msg.Of {
		case fofdc.ReadbackRequestForFire:
			m.send(fofdc.MessageToObserver{Mto: m.mto})
		case fofdc.ReadbackBattleDamageAssessment:
			m.transition(OnlineWaiting, msg.Kind().String())
		default:
			m.unexpected(msg)
		}
	case fofdc.MessageToObserverConfirm:
		if msg.Mto != m.mto {
			glog.Warningf("FDC: MTO readback mismatch %+v, sending again", msg.Mto)
			m.record(telemetry.EventAnomaly, msg.Kind().String(), "readback mismatch")
			m.send(fofdc.MessageToObserver{Mto: m.mto})
			return
		}
		m.send(fofdc.Readback(fofdc.ReadbackMessageToObserver))
		if m.sequenceInFlight() {
			glog.Warning("FDC: fire sequence already in flight")
			return
		}
		m.startSequence()
	case fofdc.ShotConfirm:
		m.send(fofdc.Readback(fofdc.ReadbackShot))
	case fofdc.SplashConfirm:
		m.send(fofdc.Readback(fofdc.ReadbackSplash))
	case fofdc.RoundsCompleteConfirm:
		m.send(fofdc.Readback(fofdc.ReadbackRoundsComplete))
	case fofdc.BattleDamageAssessment:
		m.send(fofdc.BattleDamageAssessmentConfirm{})
	default:
		m.unexpected(msg)
	}
}

func (m *Machine) unexpected(msg fofdc.Message) {
	detail := ""
	if rb, ok := msg.(fofdc.SolidReadback); ok {
		detail = rb.Of.String()
	}
	glog.Warningf("FDC: unexpected %s %s @ %s", msg.Kind(), detail, m.state)
	m.record(telemetry.EventAnomaly, msg.Kind().String(), "unexpected @ "+m.state.String())
}

func (m *Machine) transition(to State, cause string) {
	if to == m.state {
		return
	}
	glog.Infof("FDC: %s -> %s", m.state, to)
	m.Recorder.Record(&telemetry.Event{
		Role:     fofdc.RoleFDC.String(),
		Type:     telemetry.EventTransition,
		Message:  cause,
		From:     m.state.String(),
		To:       to.String(),
		UnixNano: m.Clock.Time().UnixNano(),
	})
	m.state = to
}

func (m *Machine) send(msg fofdc.Message) bool {
	if err := m.Outbound.Send(msg); err != nil {
		glog.V(2).Infof("FDC: drop %s: %v", msg.Kind(), err)
		return false
	}
	m.record(telemetry.EventSent, msg.Kind().String(), "")
	return true
}

func (m *Machine) record(typ telemetry.EventType, message, detail string) {
	m.Recorder.Record(&telemetry.Event{
		Role:     fofdc.RoleFDC.String(),
		Type:     typ,
		Message:  message,
		Detail:   detail,
		UnixNano: m.Clock.Time().UnixNano(),
	})
}

func (m *Machine) startSequence() {
	m.seqDone = make(chan struct{})
	m.seqAbort = make(chan struct{})
	go m.fire(m.seqAbort, m.seqDone)
}

// sequenceInFlight reports whether a fire sequence is still running,
// clearing one that has finished but not yet been observed by Run.
func (m *Machine) sequenceInFlight() bool {
	if m.seqDone == nil {
		return false
	}
	select {
	case <-m.seqDone:
		m.seqDone, m.seqAbort = nil, nil
		glog.Info("FDC: fire sequence finished")
		return false
	default:
		return true
	}
}

func (m *Machine) abortSequence() {
	if m.seqAbort != nil {
		close(m.seqAbort)
		m.seqDone, m.seqAbort = nil, nil
	}
}

// fire runs the fire sequence. It only writes to Outbound.
func (m *Machine) fire(abort <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	wait := func(d time.Duration) bool {
		select {
		case <-m.Clock.After(d):
			return true
		case <-abort:
			return false
		}
	}
	if !wait(m.Config.FlightTime) || !m.send(fofdc.Shot{}) {
		return
	}
	for i := 1; i < m.Config.ShotCount; i++ {
		if !wait(m.Config.ShotInterval) || !m.send(fofdc.Shot{}) {
			return
		}
	}
	if !wait(m.Config.SplashDelay) || !m.send(fofdc.Splash{}) {
		return
	}
	if wait(m.Config.RoundsCompleteDelay) {
		m.send(fofdc.RoundsComplete{})
	}
}
