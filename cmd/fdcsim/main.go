package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/TopGunSnake/example-simulators/pkg/env"
	"github.com/TopGunSnake/example-simulators/pkg/fdc"
	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/fofdc"
)

func init() {
	env.SetRole(fofdc.RoleFDC)
	env.SetupFlags()
	fdc.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := env.Load(map[string]interface{}{"fdc": fdc.Default()}); err != nil {
		glog.Exit(err)
	}

	e := env.NewConfig().MustNewEnv()
	conf := fdc.NewConfig()
	conf.Callsign = e.Config.Callsign
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
