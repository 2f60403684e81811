// Package fo implements the Forward Observer side of a fire mission.
package fo

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry"
)

// Machine is the FO protocol state machine. It consumes Inbound and
// produces Outbound, which is closed when Run returns.
type Machine struct {
	Config   Config
	Clock    fx.Clock
	Recorder telemetry.Recorder
	Inbound  *fx.Mailbox[fofdc.Message]
	Outbound *fx.Mailbox[fofdc.Message]

	state     State
	order     fofdc.WarnOrder
	confirmed bool
	missions  int

	requestTimer <-chan time.Time
	retryTimer   <-chan time.Time
}

// NewMachine creates a Machine using the config.
func (c *Config) NewMachine(inbound, outbound *fx.Mailbox[fofdc.Message]) (*Machine, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("fo config: %w", err)
	}
	return &Machine{
		Config:   *c,
		Clock:    fx.SystemClock,
		Recorder: telemetry.Nop,
		Inbound:  inbound,
		Outbound: outbound,
	}, nil
}

// Name implements Named.
func (m *Machine) Name() string {
	return "fo"
}

// State returns the current state. It must not be called while Run is active.
func (m *Machine) State() State {
	return m.state
}

// Missions returns the number of completed missions. It must not be called
// while Run is active.
func (m *Machine) Missions() int {
	return m.missions
}

// Run implements Runnable. It returns when Inbound is closed or ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	defer m.Outbound.Close()
	m.standby("")
	for {
		for {
			msg, err := m.Inbound.TryRecv()
			if err == fx.ErrMailboxEmpty {
				break
			}
			if err != nil {
				glog.Info("FO: link closed")
				return nil
			}
			m.handle(msg)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.Inbound.Wait():
		case <-m.requestTimer:
			m.requestTimer = nil
			m.request()
		case <-m.retryTimer:
			m.retryTimer = nil
			if m.state == Requesting && !m.confirmed {
				glog.Infof("FO: no confirmation, sending request for fire again")
				m.send(fofdc.RequestForFire{WarnOrder: m.order})
				m.retryTimer = m.Clock.After(m.Config.RetryInterval)
			}
		}
	}
}

func (m *Machine) standby(cause string) {
	m.transition(Standby, cause)
	m.retryTimer = nil
	if limit := m.Config.MaxMissions; limit > 0 && m.missions >= limit {
		glog.Infof("FO: %d missions complete", m.missions)
		m.requestTimer = nil
		return
	}
	m.requestTimer = m.Clock.After(m.Config.RequestDelay)
}

func (m *Machine) request() {
	if m.state != Standby {
		return
	}
	order, err := m.Config.WarnOrder()
	if err != nil {
		glog.Errorf("FO: warn order: %v", err)
		return
	}
	glog.Infof("FO: request for fire, %s at %s", order.MissionType, order.TargetLocation)
	m.order, m.confirmed = order, false
	m.send(fofdc.RequestForFire{WarnOrder: order})
	m.transition(Requesting, fofdc.KindRequestForFire.String())
	if m.Config.RetryInterval > 0 {
		m.retryTimer = m.Clock.After(m.Config.RetryInterval)
	}
}

func (m *Machine) handle(msg fofdc.Message) {
	glog.V(2).Infof("FO: %s @ %s", msg.Kind(), m.state)
	m.record(telemetry.EventReceived, msg.Kind().String(), "")
	if !msg.Kind().SentBy(fofdc.RoleFDC) {
		glog.Errorf("FO: received %s which only an observer sends", msg.Kind())
		m.record(telemetry.EventAnomaly, msg.Kind().String(), "not sent by FDC")
		return
	}
	switch m.state {
	case Requesting:
		m.handleRequesting(msg)
	case Observing:
		m.handleObserving(msg)
	case Reporting:
		m.handleReporting(msg)
	default:
		m.unexpected(msg)
	}
}

func (m *Machine) handleRequesting(msg fofdc.Message) {
	switch msg := msg.(type) {
	case fofdc.RequestForFireConfirm:
		if !msg.WarnOrder.Equal(m.order) {
			glog.Warningf("FO: request for fire readback mismatch, sending again")
			m.record(telemetry.EventAnomaly, msg.Kind().String(), "readback mismatch")
			m.send(fofdc.RequestForFire{WarnOrder: m.order})
			return
		}
		m.confirmed, m.retryTimer = true, nil
		m.send(fofdc.Readback(fofdc.ReadbackRequestForFire))
	case fofdc.MessageToObserver:
		m.confirmed, m.retryTimer = true, nil
		glog.Infof("FO: target %s, %d rounds %s", msg.TargetNumber, msg.Rounds, msg.Ammunition)
		m.send(fofdc.MessageToObserverConfirm{Mto: msg.Mto})
	case fofdc.SolidReadback:
		if msg.Of != fofdc.ReadbackMessageToObserver {
			m.unexpected(msg)
			return
		}
		m.transition(Observing, msg.Kind().String())
	default:
		m.unexpected(msg)
	}
}

func (m *Machine) handleObserving(msg fofdc.Message) {
	switch msg := msg.(type) {
	case fofdc.Shot:
		glog.Info("FO: shot")
		m.send(fofdc.ShotConfirm{})
	case fofdc.Splash:
		glog.Info("FO: splash")
		m.send(fofdc.SplashConfirm{})
	case fofdc.RoundsComplete:
		glog.Info("FO: rounds complete")
		m.send(fofdc.RoundsCompleteConfirm{})
	case fofdc.SolidReadback:
		switch msg.Of {
		case fofdc.ReadbackShot, fofdc.ReadbackSplash:
		case fofdc.ReadbackRoundsComplete:
			m.send(fofdc.BattleDamageAssessment{})
			m.transition(Reporting, msg.Kind().String())
		default:
			m.unexpected(msg)
		}
	default:
		m.unexpected(msg)
	}
}

func (m *Machine) handleReporting(msg fofdc.Message) {
	switch msg.(type) {
	case fofdc.BattleDamageAssessmentConfirm:
		m.send(fofdc.Readback(fofdc.ReadbackBattleDamageAssessment))
		m.missions++
		m.standby(msg.Kind().String())
	default:
		m.unexpected(msg)
	}
}

func (m *Machine) unexpected(msg fofdc.Message) {
	detail := ""
	if rb, ok := msg.(fofdc.SolidReadback); ok {
		detail = rb.Of.String()
	}
	glog.Warningf("FO: unexpected %s %s @ %s", msg.Kind(), detail, m.state)
	m.record(telemetry.EventAnomaly, msg.Kind().String(), "unexpected @ "+m.state.String())
}

func (m *Machine) transition(to State, cause string) {
	if to == m.state {
		return
	}
	glog.Infof("FO: %s -> %s", m.state, to)
	m.Recorder.Record(&telemetry.Event{
		Role:     fofdc.RoleFO.String(),
		Type:     telemetry.EventTransition,
		Message:  cause,
		From:     m.state.String(),
		To:       to.String(),
		UnixNano: m.Clock.Time().UnixNano(),
	})
	m.state = to
}

func (m *Machine) send(msg fofdc.Message) {
	if err := m.Outbound.Send(msg); err != nil {
		glog.V(2).Infof("FO: drop %s: %v", msg.Kind(), err)
		return
	}
	m.record(telemetry.EventSent, msg.Kind().String(), "")
}

func (m *Machine) record(typ telemetry.EventType, message, detail string) {
	m.Recorder.Record(&telemetry.Event{
		Role:     fofdc.RoleFO.String(),
		Type:     typ,
		Message:  message,
		Detail:   detail,
		UnixNano: m.Clock.Time().UnixNano(),
	})
}
