package main

//go-build: CGO_ENABLED=0

import (
	"github.com/TopGunSnake/example-simulators/pkg/cli/gunsh"
)

func init() {
	gunsh.SetupFlags()
}

func main() {
	gunsh.Main()
}
