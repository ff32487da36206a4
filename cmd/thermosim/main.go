package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/sim"
)

func init() {
	sim.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := sim.Default()
	bench := conf.NewBench()
	runner := fx.NewRunner().HandleSignals()
	for _, ep := range conf.Endpoints(bench) {
		runner.Go(ep)
	}
	if err := runner.Wait(); err != nil {
		glog.Exitf("simulator stopped: %v", err)
	}
}
