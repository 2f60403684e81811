package env

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc/comm"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc/comm/stream"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc/comm/websocket"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry/mqtt"
)

// Env is the env of a node: the link to its peer, the mailboxes for the
// state machine and the telemetry recorder.
type Env struct {
	Config   *Config
	Handler  *comm.Handler
	Inbound  *fx.Mailbox[fofdc.Message]
	Outbound *fx.Mailbox[fofdc.Message]
	Recorder telemetry.Recorder

	publisher *mqtt.Publisher
}

// NodeInfo describes the node for telemetry.
func (c *Config) NodeInfo() telemetry.NodeInfo {
	return telemetry.NodeInfo{
		Node:      c.NodeID,
		Role:      c.Role.String(),
		Callsign:  c.Callsign,
		Transport: c.Transport,
		LocalAddr: c.LocalAddr,
		PeerAddr:  c.PeerAddr,
	}
}

// Dial establishes the link to the peer. With ws and tcp transports the
// FDC blocks until the FO connects.
func (c *Config) Dial() (comm.PacketReadWriter, error) {
	switch c.Transport {
	case TransportUDP:
		return comm.DialUDP(c.LocalAddr, c.PeerAddr)
	case TransportTCP:
		if c.Role == fofdc.RoleFDC {
			glog.Infof("waiting for observer on tcp %s", c.LocalAddr)
			return stream.Accept(c.LocalAddr)
		}
		return stream.Dial(c.PeerAddr)
	case TransportWebSocket:
		if c.Role == fofdc.RoleFDC {
			ln, err := websocket.Listen(c.LocalAddr)
			if err != nil {
				return nil, err
			}
			defer ln.Close()
			glog.Infof("waiting for observer on ws://%s%s", ln.Addr(), websocket.Path)
			rw, err := ln.Accept()
			if err != nil {
				return nil, err
			}
			return rw, nil
		}
		return websocket.Dial("ws://" + c.PeerAddr + websocket.Path)
	}
	return nil, fmt.Errorf("unknown transport %q", c.Transport)
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	env := &Env{
		Config:   c,
		Inbound:  fx.NewMailbox[fofdc.Message](),
		Outbound: fx.NewMailbox[fofdc.Message](),
		Recorder: telemetry.Nop,
	}
	if c.MQTTBrokerURL != "" {
		pub, err := mqtt.NewPublisher(c.MQTTBrokerURL, c.NodeInfo())
		if err != nil {
			return nil, fmt.Errorf("create MQTT publisher error: %w", err)
		}
		env.publisher, env.Recorder = pub, pub
	}
	link, err := c.Dial()
	if err != nil {
		return nil, fmt.Errorf("%s link %s: %w", c.Transport, c.PeerAddr, err)
	}
	env.Handler = comm.NewHandler(link, c.Role, env.Inbound, env.Outbound)
	glog.Infof("%s %s (%s) linked over %s, local %s peer %s",
		c.Role, c.Callsign, c.NodeID, c.Transport, c.LocalAddr, c.PeerAddr)
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		glog.Exit(err)
	}
	return env
}

// Runnables returns the link handler and machine to run together. With
// telemetry the publisher runs too and is closed once machine returns.
func (e *Env) Runnables(machine fx.Runnable) []fx.Runnable {
	runnables := []fx.Runnable{e.Handler}
	pub := e.publisher
	if pub == nil {
		return append(runnables, machine)
	}
	name := "machine"
	if named, ok := machine.(fx.Named); ok {
		name = named.Name()
	}
	return append(runnables, pub, fx.NamedRun(name, fx.RunFunc(func(ctx context.Context) error {
		defer pub.Close()
		return machine.Run(ctx)
	})))
}
