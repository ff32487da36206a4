package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/config"
	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/supervisor"
)

func init() {
	config.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.Load()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	s, err := supervisor.New(conf)
	if err != nil {
		glog.Exitf("start: %v", err)
	}
	defer s.Close()

	runner := fx.NewRunner().HandleSignals()
	if err := s.Run(runner.Context); err != nil {
		glog.Errorf("stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Info("stopped")
}
