package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/TopGunSnake/example-simulators/pkg/env"
	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/fo"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
)

func init() {
	env.SetRole(fofdc.RoleFO)
	env.SetupFlags()
	fo.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := env.Load(map[string]interface{}{"fo": fo.Default()}); err != nil {
		glog.Exit(err)
	}

	e := env.NewConfig().MustNewEnv()
	conf := fo.NewConfig()
	conf.Callsign = e.Config.Callsign
	if conf.ResponseAddr == "" && e.Config.Transport == env.TransportUDP {
		conf.ResponseAddr = e.Config.LocalAddr
	}
	machine, err := conf.NewMachine(e.Inbound, e.Outbound)
	if err != nil {
		glog.Exit(err)
	}
	machine.Recorder = e.Recorder

	err = fx.NewRunner().HandleSignals().
		Go(e.Runnables(machine)...).
		Wait()
	if err != nil {
		glog.Exit(err)
	}
}
