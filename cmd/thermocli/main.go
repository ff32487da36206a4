package main

import (
	"github.com/robotalks/thermo.go/pkg/cli/sh"
	"github.com/robotalks/thermo.go/pkg/config"

	_ "github.com/robotalks/thermo.go/pkg/cli/cmds/peripheral"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
